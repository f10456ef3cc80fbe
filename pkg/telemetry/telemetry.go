// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires the launcher into OpenTelemetry tracing. Init
// installs the configured exporter behind the global TracerProvider and
// returns the shutdown hook that flushes spans on exit.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// serviceName is the service.name resource attribute on every span.
const serviceName = "spark-launcher"

// shutdownTimeout bounds the final span flush during shutdown.
const shutdownTimeout = 5 * time.Second

// Config configures tracing. The zero value disables it.
type Config struct {
	// Enabled turns tracing on. When false Init installs a no-op provider.
	Enabled bool `yaml:"enabled"`

	// Exporter selects where spans go: "otlp" (default), "stdout", or
	// "none" (spans are created but not exported).
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address, e.g. "otel-collector:4317".
	// Only read when Exporter is "otlp".
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// SamplingRate is the fraction of root traces to sample (1.0 = all,
	// 0.1 = 10%). Zero or out-of-range values sample everything.
	SamplingRate float64 `yaml:"samplingRate"`
}

// ShutdownFunc flushes buffered spans and releases the exporter.
type ShutdownFunc func(ctx context.Context) error

// Init builds the configured TracerProvider and installs it, together with
// the W3C trace-context and baggage propagators, as the process-wide
// default. The returned ShutdownFunc must run during graceful shutdown;
// when tracing is disabled it is a no-op and always returns nil.
func Init(ctx context.Context, cfg Config, serviceVersion string, log *zap.SugaredLogger) (trace.TracerProvider, ShutdownFunc, error) {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	exporter, err := newExporter(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// Schemaless attributes so the merge cannot fail on a schema URL
	// mismatch with the SDK's default resource.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("building trace resource: %w", err)
	}

	ratio := sampleRatio(cfg.SamplingRate, log)
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	// Export failures surface through the SDK error handler, not through a
	// span. Send them to the launcher log instead of the stderr default.
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Warnw("OpenTelemetry error", "error", err)
	}))

	log.Infow("Tracing initialized",
		"exporter", exporterName(cfg.Exporter),
		"samplingRate", ratio,
		"serviceVersion", serviceVersion,
	)

	shutdown := func(ctx context.Context) error {
		log.Debugw("Flushing tracer provider")
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return tp, shutdown, nil
}

// newExporter builds the span exporter named by cfg.Exporter. A nil exporter
// with a nil error means spans stay in-process ("none").
func newExporter(ctx context.Context, cfg Config, log *zap.SugaredLogger) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp", "":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
		}
		log.Infow("OTLP trace exporter ready", "endpoint", cfg.Endpoint, "insecure", cfg.Insecure)
		return exporter, nil

	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		return exporter, nil

	case "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown trace exporter %q, want otlp, stdout or none", cfg.Exporter)
	}
}

// sampleRatio returns the configured sampling rate. Zero means unset and
// samples everything.
func sampleRatio(rate float64, log *zap.SugaredLogger) float64 {
	if rate == 0 {
		return 1.0
	}
	if rate < 0 || rate > 1 {
		log.Warnw("Sampling rate out of range, sampling everything", "samplingRate", rate)
		return 1.0
	}
	return rate
}

// exporterName normalizes the empty default for logging.
func exporterName(e string) string {
	if e == "" {
		return "otlp"
	}
	return e
}

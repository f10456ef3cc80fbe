/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package audit

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/k8s-spark-launcher/pkg/metrics"
)

// Config configures the audit Service. The zero value disables auditing.
type Config struct {
	// Enabled turns the audit trail on. When false the Service is a no-op.
	Enabled bool `yaml:"enabled"`

	// QueueSize bounds the in-memory event queue. Default: 1000.
	QueueSize int `yaml:"queueSize"`

	// WriteTimeout bounds a single delivery across all sinks, e.g. "5s".
	// Default: 5s.
	WriteTimeout string `yaml:"writeTimeout"`

	// SampleRate keeps this fraction of high-volume events (1.0 = all,
	// 0.1 = 10%). Other events are always captured. Default: 1.0.
	SampleRate float64 `yaml:"sampleRate"`

	// Webhook sink settings. Disabled unless Enabled is set.
	Webhook WebhookConfig `yaml:"webhook"`

	// Kafka sink settings. Disabled unless Enabled is set.
	Kafka KafkaConfig `yaml:"kafka"`
}

// WebhookConfig is the file-facing configuration of the webhook sink.
type WebhookConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	// Timeout per delivery attempt, e.g. "10s".
	Timeout string `yaml:"timeout"`
}

// KafkaConfig is the file-facing configuration of the Kafka sink.
// Certificates are given as file paths and loaded at startup.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	TLSEnabled            bool   `yaml:"tlsEnabled"`
	TLSCACertFile         string `yaml:"tlsCACertFile"`
	TLSClientCertFile     string `yaml:"tlsClientCertFile"`
	TLSClientKeyFile      string `yaml:"tlsClientKeyFile"`
	TLSInsecureSkipVerify bool   `yaml:"tlsInsecureSkipVerify"`

	SASLMechanism string `yaml:"saslMechanism"`
	SASLUsername  string `yaml:"saslUsername"`
	SASLPassword  string `yaml:"saslPassword"`

	CompressionCodec string `yaml:"compressionCodec"`
}

// Service owns the audit pipeline: a bounded queue, a delivery worker and
// the configured sinks. Emit never blocks request handling; when the queue
// is full events are dropped and counted.
type Service struct {
	logger  *zap.Logger
	sink    *MultiSink
	queue   chan *Event
	wg      sync.WaitGroup
	closed  atomic.Bool
	enabled bool

	writeTimeout time.Duration
	sampleRate   float64

	queuedEvents    atomic.Int64
	processedEvents atomic.Int64
	droppedEvents   atomic.Int64
}

// NewService builds the sinks named in cfg and starts the delivery worker.
// The log sink is always active when auditing is enabled.
func NewService(cfg Config, logger *zap.Logger) (*Service, error) {
	log := logger.Named("audit-service")

	if !cfg.Enabled {
		log.Info("audit trail disabled")
		return &Service{logger: log}, nil
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	writeTimeout := 5 * time.Second
	if cfg.WriteTimeout != "" {
		d, err := time.ParseDuration(cfg.WriteTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing audit writeTimeout %q: %w", cfg.WriteTimeout, err)
		}
		writeTimeout = d
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	sinks := []Sink{NewLogSink(logger)}

	if cfg.Webhook.Enabled {
		ws, err := buildWebhookSink(cfg.Webhook)
		if err != nil {
			return nil, fmt.Errorf("building webhook sink: %w", err)
		}
		sinks = append(sinks, ws)
	}

	if cfg.Kafka.Enabled {
		ks, err := buildKafkaSink(cfg.Kafka, logger)
		if err != nil {
			return nil, fmt.Errorf("building kafka sink: %w", err)
		}
		sinks = append(sinks, ks)
	}

	s := newService(NewMultiSink(sinks...), queueSize, writeTimeout, sampleRate, log)

	sinkNames := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		sinkNames = append(sinkNames, sink.Name())
	}
	log.Info("audit service started",
		zap.Strings("sinks", sinkNames),
		zap.Int("queue_size", queueSize),
		zap.Duration("write_timeout", writeTimeout),
		zap.Float64("sample_rate", sampleRate))

	s.Emit(context.Background(), &Event{
		Type:  EventAuditStarted,
		Actor: Actor{User: "system"},
	})

	return s, nil
}

func newService(sink *MultiSink, queueSize int, writeTimeout time.Duration, sampleRate float64, log *zap.Logger) *Service {
	s := &Service{
		logger:       log,
		sink:         sink,
		queue:        make(chan *Event, queueSize),
		enabled:      true,
		writeTimeout: writeTimeout,
		sampleRate:   sampleRate,
	}

	// A single worker preserves emission order across sinks.
	s.wg.Add(1)
	go s.processQueue()

	return s
}

func buildWebhookSink(cfg WebhookConfig) (*WebhookSink, error) {
	var timeout time.Duration
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing webhook timeout %q: %w", cfg.Timeout, err)
		}
		timeout = d
	}
	return NewWebhookSink(WebhookSinkConfig{
		URL:     cfg.URL,
		Headers: cfg.Headers,
		Timeout: timeout,
	})
}

func buildKafkaSink(cfg KafkaConfig, logger *zap.Logger) (*KafkaSink, error) {
	sinkCfg := KafkaSinkConfig{
		Brokers:          cfg.Brokers,
		Topic:            cfg.Topic,
		CompressionCodec: cfg.CompressionCodec,
	}

	if cfg.TLSEnabled {
		tlsCfg := &KafkaTLSConfig{
			Enabled:            true,
			InsecureSkipVerify: cfg.TLSInsecureSkipVerify,
		}
		if cfg.TLSCACertFile != "" {
			ca, err := os.ReadFile(cfg.TLSCACertFile)
			if err != nil {
				return nil, fmt.Errorf("reading Kafka CA certificate: %w", err)
			}
			tlsCfg.CACert = ca
		}
		if cfg.TLSClientCertFile != "" && cfg.TLSClientKeyFile != "" {
			cert, err := os.ReadFile(cfg.TLSClientCertFile)
			if err != nil {
				return nil, fmt.Errorf("reading Kafka client certificate: %w", err)
			}
			key, err := os.ReadFile(cfg.TLSClientKeyFile)
			if err != nil {
				return nil, fmt.Errorf("reading Kafka client key: %w", err)
			}
			tlsCfg.ClientCert = cert
			tlsCfg.ClientKey = key
		}
		sinkCfg.TLS = tlsCfg
	}

	if cfg.SASLMechanism != "" {
		sinkCfg.SASL = &KafkaSASLConfig{
			Mechanism: cfg.SASLMechanism,
			Username:  cfg.SASLUsername,
			Password:  cfg.SASLPassword,
		}
	}

	return NewKafkaSink(sinkCfg, logger)
}

// Enabled reports whether the audit trail is active.
func (s *Service) Enabled() bool {
	return s.enabled
}

type correlationKey struct{}

// WithCorrelationID returns a context carrying the request correlation ID.
// Events emitted with that context inherit the ID in their RequestContext.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// Emit queues an audit event for asynchronous delivery. It never blocks:
// when the queue is full the event is dropped and counted.
func (s *Service) Emit(ctx context.Context, event *Event) {
	if !s.enabled || s.closed.Load() {
		return
	}

	if s.shouldSample(event.Type) {
		s.droppedEvents.Add(1)
		return
	}

	s.fillDefaults(ctx, event)

	select {
	case s.queue <- event:
		s.queuedEvents.Add(1)
		metrics.AuditEventsEmitted.WithLabelValues(string(event.Type)).Inc()
	default:
		s.droppedEvents.Add(1)
		metrics.AuditEventsDropped.Inc()
		s.logger.Warn("audit queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
}

// EmitSync delivers an event through all sinks before returning. Use
// sparingly, for events that must not be lost on shutdown.
func (s *Service) EmitSync(ctx context.Context, event *Event) error {
	if !s.enabled {
		return nil
	}

	s.fillDefaults(ctx, event)
	metrics.AuditEventsEmitted.WithLabelValues(string(event.Type)).Inc()
	return s.sink.Write(ctx, event)
}

func (s *Service) fillDefaults(ctx context.Context, event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityForEventType(event.Type)
	}
	if event.Actor.User == "" {
		event.Actor.User = "system"
	}
	if id := correlationFromContext(ctx); id != "" {
		if event.RequestContext == nil {
			event.RequestContext = &RequestContext{}
		}
		if event.RequestContext.CorrelationID == "" {
			event.RequestContext.CorrelationID = id
		}
	}
}

// shouldSample returns true if the event should be dropped by sampling.
func (s *Service) shouldSample(eventType EventType) bool {
	if s.sampleRate >= 1.0 || !IsHighVolumeEvent(eventType) {
		return false
	}
	return float64(time.Now().UnixNano()%1000)/1000.0 > s.sampleRate
}

func (s *Service) processQueue() {
	defer s.wg.Done()

	for event := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		if err := s.sink.Write(ctx, event); err != nil {
			s.logger.Error("failed to write audit event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		} else {
			s.processedEvents.Add(1)
		}
		cancel()
	}
}

// Close drains the queue, emits the shutdown marker and closes all sinks.
func (s *Service) Close() error {
	if !s.enabled {
		return nil
	}
	if s.closed.Swap(true) {
		return nil
	}

	close(s.queue)
	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	_ = s.EmitSync(ctx, &Event{
		Type:  EventAuditStopped,
		Actor: Actor{User: "system"},
		Details: map[string]any{
			"processed": s.processedEvents.Load(),
			"dropped":   s.droppedEvents.Load(),
		},
	})

	s.logger.Info("audit service stopped",
		zap.Int64("processed", s.processedEvents.Load()),
		zap.Int64("dropped", s.droppedEvents.Load()))

	return s.sink.Close()
}

// Stats returns delivery counters for diagnostics.
func (s *Service) Stats() ServiceStats {
	stats := ServiceStats{
		QueuedEvents:    s.queuedEvents.Load(),
		ProcessedEvents: s.processedEvents.Load(),
		DroppedEvents:   s.droppedEvents.Load(),
	}
	if s.queue != nil {
		stats.QueueLength = len(s.queue)
		stats.QueueCapacity = cap(s.queue)
	}
	return stats
}

// ServiceStats contains audit delivery counters.
type ServiceStats struct {
	QueuedEvents    int64
	ProcessedEvents int64
	DroppedEvents   int64
	QueueLength     int
	QueueCapacity   int
}

// --- Helper methods for common events ---

// SubmissionReceived records that the API accepted a submission request.
func (s *Service) SubmissionReceived(ctx context.Context, actor Actor, submissionID, appName, namespace string) {
	s.Emit(ctx, &Event{
		Type:    EventSubmissionReceived,
		Actor:   actor,
		Target:  Target{Kind: "Submission", Name: submissionID, Namespace: namespace},
		Message: "submission received",
		Details: map[string]any{
			"appName": appName,
		},
		RequestContext: &RequestContext{SubmissionID: submissionID},
	})
}

// SubmissionPrepared records a successfully prepared submission.
func (s *Service) SubmissionPrepared(ctx context.Context, actor Actor, submissionID, namespace, serviceName string, resourceCount int) {
	s.Emit(ctx, &Event{
		Type:    EventSubmissionPrepared,
		Actor:   actor,
		Target:  Target{Kind: "Submission", Name: submissionID, Namespace: namespace},
		Message: "submission prepared",
		Details: map[string]any{
			"serviceName":   serviceName,
			"resourceCount": resourceCount,
		},
		RequestContext: &RequestContext{SubmissionID: submissionID},
	})
}

// SubmissionSubmitted records that a submission's resources were created.
func (s *Service) SubmissionSubmitted(ctx context.Context, actor Actor, submissionID, namespace string, resourceCount int) {
	s.Emit(ctx, &Event{
		Type:    EventSubmissionSubmitted,
		Actor:   actor,
		Target:  Target{Kind: "Submission", Name: submissionID, Namespace: namespace},
		Message: "submission resources created",
		Details: map[string]any{
			"resourceCount": resourceCount,
		},
		RequestContext: &RequestContext{SubmissionID: submissionID},
	})
}

// SubmissionFailed records a failed preparation or submission.
func (s *Service) SubmissionFailed(ctx context.Context, actor Actor, submissionID, namespace, stage string, err error) {
	s.Emit(ctx, &Event{
		Type:    EventSubmissionFailed,
		Actor:   actor,
		Target:  Target{Kind: "Submission", Name: submissionID, Namespace: namespace},
		Message: "submission failed",
		Details: map[string]any{
			"stage": stage,
			"error": err.Error(),
		},
		RequestContext: &RequestContext{SubmissionID: submissionID},
	})
}

// SubmissionConflict records a submission rejected over managed properties.
func (s *Service) SubmissionConflict(ctx context.Context, actor Actor, submissionID, key, reason string) {
	s.Emit(ctx, &Event{
		Type:    EventSubmissionConflict,
		Actor:   actor,
		Target:  Target{Kind: "Submission", Name: submissionID},
		Message: "submission conflicts with managed configuration",
		Details: map[string]any{
			"property": key,
			"reason":   reason,
		},
		RequestContext: &RequestContext{SubmissionID: submissionID},
	})
}

// ServiceNameFallback records that a clock-derived service name was used.
func (s *Service) ServiceNameFallback(ctx context.Context, submissionID, namespace, preferred, fallback string) {
	s.Emit(ctx, &Event{
		Type:    EventServiceNameFallback,
		Target:  Target{Kind: "Service", Name: fallback, Namespace: namespace},
		Message: "driver service name fell back to launch time",
		Details: map[string]any{
			"preferred": preferred,
			"fallback":  fallback,
		},
		RequestContext: &RequestContext{SubmissionID: submissionID},
	})
}

// ResourceCreated records a resource created on the cluster.
func (s *Service) ResourceCreated(ctx context.Context, submissionID, kind, name, namespace string) {
	s.Emit(ctx, &Event{
		Type:           EventResourceCreated,
		Target:         Target{Kind: kind, Name: name, Namespace: namespace},
		Message:        "resource created",
		RequestContext: &RequestContext{SubmissionID: submissionID},
	})
}

// ResourceConflict records a resource creation rejected over a name clash.
func (s *Service) ResourceConflict(ctx context.Context, submissionID, kind, name, namespace string) {
	s.Emit(ctx, &Event{
		Type:           EventResourceConflict,
		Target:         Target{Kind: kind, Name: name, Namespace: namespace},
		Message:        "resource already exists",
		RequestContext: &RequestContext{SubmissionID: submissionID},
	})
}

// AuthFailure records a rejected API request.
func (s *Service) AuthFailure(ctx context.Context, actor Actor, path, reason string) {
	s.Emit(ctx, &Event{
		Type:    EventAuthFailure,
		Actor:   actor,
		Message: "authentication failed",
		Details: map[string]any{
			"path":   path,
			"reason": reason,
		},
	})
}

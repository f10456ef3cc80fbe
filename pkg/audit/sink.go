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
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/telekom/k8s-spark-launcher/pkg/metrics"
)

// Sink is a destination for audit events.
type Sink interface {
	// Write delivers one event. Implementations must honor ctx cancellation.
	Write(ctx context.Context, event *Event) error

	// Close flushes and releases the sink.
	Close() error

	// Name identifies the sink in logs and metrics.
	Name() string
}

// LogSink writes audit events to the process log. It is the default sink
// and always available, so audit data survives even without external
// infrastructure.
type LogSink struct {
	log *zap.SugaredLogger
}

// NewLogSink creates a LogSink on top of the given logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{log: logger.Named("audit").Sugar()}
}

// Name returns the sink identifier.
func (s *LogSink) Name() string { return "log" }

// Write logs the event at a level matching its severity.
func (s *LogSink) Write(_ context.Context, event *Event) error {
	kv := []any{
		"event_id", event.ID,
		"event_type", string(event.Type),
		"severity", string(event.Severity),
		"event_time", event.Timestamp,
		"actor", event.Actor.User,
	}
	if event.Actor.SourceIP != "" {
		kv = append(kv, "source_ip", event.Actor.SourceIP)
	}
	if event.Target.Kind != "" {
		kv = append(kv, "target_kind", event.Target.Kind, "target_name", event.Target.Name)
	}
	if event.Target.Namespace != "" {
		kv = append(kv, "target_namespace", event.Target.Namespace)
	}
	if rc := event.RequestContext; rc != nil {
		if rc.CorrelationID != "" {
			kv = append(kv, "correlation_id", rc.CorrelationID)
		}
		if rc.SubmissionID != "" {
			kv = append(kv, "submission_id", rc.SubmissionID)
		}
	}
	if len(event.Details) > 0 {
		kv = append(kv, "details", event.Details)
	}

	msg := event.Message
	if msg == "" {
		msg = "audit event"
	}

	switch event.Severity {
	case SeverityCritical:
		s.log.Errorw(msg, kv...)
	case SeverityWarning:
		s.log.Warnw(msg, kv...)
	default:
		s.log.Infow(msg, kv...)
	}
	return nil
}

// Close is a no-op for the log sink.
func (s *LogSink) Close() error { return nil }

// WebhookSinkConfig configures a WebhookSink.
type WebhookSinkConfig struct {
	// Name is the identifier for this sink instance. Defaults to "webhook".
	Name string

	// URL is the endpoint events are POSTed to.
	URL string

	// Headers are added to every request, e.g. for bearer auth.
	Headers map[string]string

	// Timeout per delivery attempt. Default: 10 seconds.
	Timeout time.Duration
}

// WebhookSink POSTs audit events as JSON to an HTTP endpoint.
type WebhookSink struct {
	name   string
	url    string
	client *resty.Client
}

// NewWebhookSink creates a WebhookSink.
func NewWebhookSink(cfg WebhookSinkConfig) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	name := cfg.Name
	if name == "" {
		name = "webhook"
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.Headers)

	return &WebhookSink{name: name, url: cfg.URL, client: client}, nil
}

// Name returns the sink identifier.
func (s *WebhookSink) Name() string { return s.name }

// Write POSTs the event to the configured endpoint. The event is marshaled
// up front so serialization failures stay distinguishable from delivery
// failures in the error metrics.
func (s *WebhookSink) Write(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		metrics.AuditSinkErrors.WithLabelValues(s.name, "serialization").Inc()
		return fmt.Errorf("marshaling audit event: %w", err)
	}

	resp, err := s.client.R().SetContext(ctx).SetBody(body).Post(s.url)
	if err != nil {
		metrics.AuditSinkErrors.WithLabelValues(s.name, "network").Inc()
		return fmt.Errorf("delivering audit event to %s: %w", s.url, err)
	}
	if !resp.IsSuccess() {
		metrics.AuditSinkErrors.WithLabelValues(s.name, "status").Inc()
		return fmt.Errorf("webhook %s returned status %d", s.url, resp.StatusCode())
	}
	return nil
}

// Close releases idle connections.
func (s *WebhookSink) Close() error {
	s.client.GetClient().CloseIdleConnections()
	return nil
}

// MultiSink fans an event out to several sinks. A failing sink does not
// stop delivery to the others.
type MultiSink struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewMultiSink creates a MultiSink over the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Name returns the sink identifier.
func (s *MultiSink) Name() string { return "multi" }

// Sinks returns a copy of the current sink set.
func (s *MultiSink) Sinks() []Sink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Sink, len(s.sinks))
	copy(out, s.sinks)
	return out
}

// Write delivers the event to every sink, joining any errors.
func (s *MultiSink) Write(ctx context.Context, event *Event) error {
	s.mu.RLock()
	sinks := s.sinks
	s.mu.RUnlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.Write(ctx, event); err != nil {
			metrics.AuditSinkErrors.WithLabelValues(sink.Name(), "write").Inc()
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, joining any errors.
func (s *MultiSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing sink %s: %w", sink.Name(), err))
		}
	}
	s.sinks = nil
	return errors.Join(errs...)
}

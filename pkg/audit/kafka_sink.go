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
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
	"go.uber.org/zap"

	"github.com/telekom/k8s-spark-launcher/pkg/metrics"
)

const (
	defaultKafkaBatchSize    = 100
	defaultKafkaBatchTimeout = time.Second
	defaultKafkaWriteTimeout = 10 * time.Second
)

// KafkaSinkConfig describes one Kafka destination for audit events.
type KafkaSinkConfig struct {
	// Name identifies the sink in logs and metrics. Defaults to "kafka".
	Name string

	// Brokers is the bootstrap broker list, host:port each.
	Brokers []string

	// Topic receives the audit events.
	Topic string

	// TLS enables encrypted connections when set.
	TLS *KafkaTLSConfig

	// SASL enables broker authentication when set.
	SASL *KafkaSASLConfig

	// BatchSize caps how many events one produce request carries.
	BatchSize int

	// BatchTimeout bounds how long an incomplete batch may linger.
	BatchTimeout time.Duration

	// WriteTimeout bounds one produce round trip.
	WriteTimeout time.Duration

	// RequiredAcks follows the Kafka convention, -1 all replicas and
	// 1 leader only. Zero is treated as unset and means all replicas,
	// an audit trail is not worth losing to a leader failover.
	RequiredAcks int

	// CompressionCodec is one of none, gzip, snappy, lz4 or zstd.
	// Defaults to snappy.
	CompressionCodec string
}

// KafkaTLSConfig carries the PEM material for a TLS broker connection.
type KafkaTLSConfig struct {
	Enabled bool

	// CACert is the PEM bundle that signs the broker certificates.
	// Empty means the system roots.
	CACert []byte

	// ClientCert and ClientKey form the mTLS client pair, both or neither.
	ClientCert []byte
	ClientKey  []byte

	// InsecureSkipVerify disables server certificate checks. Test
	// clusters only.
	InsecureSkipVerify bool
}

// KafkaSASLConfig selects how the sink authenticates against the brokers.
type KafkaSASLConfig struct {
	// Mechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512, case does
	// not matter. Empty disables SASL.
	Mechanism string
	Username  string
	Password  string
}

// KafkaSink delivers audit events to a Kafka topic. Writes are
// synchronous so a delivery failure surfaces to the caller instead of
// vanishing in a background goroutine.
type KafkaSink struct {
	name   string
	writer *kafka.Writer
	log    *zap.Logger

	mu     sync.Mutex
	closed bool

	up      atomic.Bool
	written atomic.Int64
	failed  atomic.Int64
}

// NewKafkaSink validates the config and builds the sink. No connection
// is opened here, kafka-go dials lazily on the first write.
func NewKafkaSink(cfg KafkaSinkConfig, log *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("Kafka topic is required")
	}
	cfg.applyDefaults()

	writer, err := newKafkaWriter(cfg, log)
	if err != nil {
		return nil, err
	}

	s := &KafkaSink{
		name:   cfg.Name,
		writer: writer,
		log:    log.Named("kafka-sink"),
	}
	// Optimistic until the first write says otherwise.
	s.up.Store(true)
	metrics.AuditSinkConnected.WithLabelValues(s.name).Set(1)

	s.log.Info("Kafka audit sink configured",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.Bool("tls", cfg.TLS != nil && cfg.TLS.Enabled),
		zap.Bool("sasl", cfg.SASL != nil && cfg.SASL.Mechanism != ""))
	return s, nil
}

func (c *KafkaSinkConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "kafka"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultKafkaBatchSize
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = defaultKafkaBatchTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultKafkaWriteTimeout
	}
}

func newKafkaWriter(cfg KafkaSinkConfig, log *zap.Logger) (*kafka.Writer, error) {
	transport, err := newKafkaTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:  kafka.TCP(cfg.Brokers...),
		Topic: cfg.Topic,
		// Messages are keyed by submission, the hash balancer keeps
		// one submission's trail on one partition and thus in order.
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: requiredAcks(cfg.RequiredAcks),
		Compression:  compressionCodec(cfg.CompressionCodec, log),
		Transport:    transport,
		// The topic is provisioned ahead of time with the retention
		// the audit trail needs, never auto-created.
		AllowAutoTopicCreation: false,
	}, nil
}

// newKafkaTransport returns a nil RoundTripper when neither TLS nor
// SASL is requested, which makes the writer use kafka.DefaultTransport.
func newKafkaTransport(cfg KafkaSinkConfig) (kafka.RoundTripper, error) {
	tlsCfg, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("building Kafka TLS config: %w", err)
	}
	mechanism, err := buildSASLMechanism(cfg.SASL)
	if err != nil {
		return nil, err
	}
	if tlsCfg == nil && mechanism == nil {
		return nil, nil
	}
	return &kafka.Transport{
		TLS:  tlsCfg,
		SASL: mechanism,
	}, nil
}

func buildTLSConfig(cfg *KafkaTLSConfig) (*tls.Config, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // config opt-in
	}
	if len(cfg.CACert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.CACert) {
			return nil, errors.New("CA certificate is not valid PEM")
		}
		tlsCfg.RootCAs = pool
	}
	if len(cfg.ClientCert) > 0 || len(cfg.ClientKey) > 0 {
		pair, err := tls.X509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{pair}
	}
	return tlsCfg, nil
}

func buildSASLMechanism(cfg *KafkaSASLConfig) (sasl.Mechanism, error) {
	if cfg == nil || cfg.Mechanism == "" {
		return nil, nil
	}
	switch strings.ToLower(cfg.Mechanism) {
	case "plain":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "scram-sha-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "scram-sha-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism %q", cfg.Mechanism)
	}
}

func requiredAcks(n int) kafka.RequiredAcks {
	// Zero is the yaml zero value here, not a request for fire and forget.
	if n == 0 {
		return kafka.RequireAll
	}
	return kafka.RequiredAcks(n)
}

var compressionCodecs = map[string]kafka.Compression{
	"":       kafka.Snappy,
	"none":   0,
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

func compressionCodec(name string, log *zap.Logger) kafka.Compression {
	if codec, ok := compressionCodecs[strings.ToLower(name)]; ok {
		return codec
	}
	log.Warn("Unknown Kafka compression codec, falling back to snappy",
		zap.String("codec", name))
	return kafka.Snappy
}

// Name returns the configured sink name.
func (s *KafkaSink) Name() string {
	return s.name
}

// Write serializes the event and produces it to the topic. Blocks
// until the brokers acknowledge or ctx runs out.
func (s *KafkaSink) Write(ctx context.Context, event *Event) error {
	if s.isClosed() {
		metrics.AuditSinkErrors.WithLabelValues(s.name, "closed").Inc()
		return fmt.Errorf("kafka sink %s is closed", s.name)
	}

	msg, err := kafkaMessage(event)
	if err != nil {
		metrics.AuditSinkErrors.WithLabelValues(s.name, "serialization").Inc()
		s.failed.Add(1)
		return err
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		errType := classifyKafkaError(err)
		metrics.AuditSinkErrors.WithLabelValues(s.name, errType).Inc()
		s.failed.Add(1)
		s.markDown()
		s.logWriteFailure(event, errType, err)
		return fmt.Errorf("producing audit event %s: %w", event.ID, err)
	}

	s.written.Add(1)
	s.markUp()
	return nil
}

// markDown flips the connected gauge off, once per outage.
func (s *KafkaSink) markDown() {
	if s.up.Swap(false) {
		metrics.AuditSinkConnected.WithLabelValues(s.name).Set(0)
	}
}

// markUp flips the connected gauge back on after an outage.
func (s *KafkaSink) markUp() {
	if !s.up.Swap(true) {
		metrics.AuditSinkConnected.WithLabelValues(s.name).Set(1)
		s.log.Info("Kafka sink recovered", zap.String("sink", s.name))
	}
}

// kafkaMessage converts an audit event into a keyed Kafka message.
// The key is the submission ID where known so all events of one
// submission land on the same partition, the event ID otherwise.
func kafkaMessage(event *Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding audit event %s: %w", event.ID, err)
	}

	key := event.ID
	if rc := event.RequestContext; rc != nil && rc.SubmissionID != "" {
		key = rc.SubmissionID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "severity", Value: []byte(event.Severity)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}
	if event.Actor.User != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "actor", Value: []byte(event.Actor.User)})
	}
	if rc := event.RequestContext; rc != nil && rc.SubmissionID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "submission-id", Value: []byte(rc.SubmissionID)})
	}
	return msg, nil
}

func (s *KafkaSink) logWriteFailure(event *Event, errType string, err error) {
	fields := []zap.Field{
		zap.String("sink", s.name),
		zap.String("eventID", event.ID),
		zap.String("eventType", string(event.Type)),
		zap.String("errorType", errType),
		zap.Error(err),
	}
	switch errType {
	case "auth", "tls":
		// Retrying will not help until someone fixes the credentials.
		s.log.Error("Kafka rejected audit event", fields...)
	case "network", "dns", "timeout":
		s.log.Warn("Kafka unreachable, audit event dropped", fields...)
	default:
		s.log.Error("Writing audit event to Kafka failed", fields...)
	}
}

// Close flushes buffered messages and shuts the writer down. Safe to
// call more than once.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.up.Store(false)
	metrics.AuditSinkConnected.WithLabelValues(s.name).Set(0)

	s.log.Info("Closing Kafka audit sink",
		zap.Int64("written", s.written.Load()),
		zap.Int64("failed", s.failed.Load()))
	return s.writer.Close()
}

func (s *KafkaSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// IsConnected reports whether the last produce attempt succeeded.
// True before the first write, the connection is lazy.
func (s *KafkaSink) IsConnected() bool {
	return s.up.Load()
}

// kafkaErrorPatterns maps substrings of broker error text to a coarse
// class for logs and metrics. Scanned in order, first match wins, so
// the credential entries must stay ahead of the generic ones.
var kafkaErrorPatterns = []struct {
	substr string
	class  string
}{
	{"sasl", "auth"},
	{"authentication", "auth"},
	{"certificate", "tls"},
	{"x509", "tls"},
	{"tls", "tls"},
	{"timed out", "timeout"},
	{"timeout", "timeout"},
	{"no such host", "dns"},
	{"connection refused", "network"},
	{"broken pipe", "network"},
	{"leader", "broker"},
	{"not enough replicas", "broker"},
	{"broker", "broker"},
	{"topic", "topic"},
}

// classifyKafkaError buckets a produce error. Returns "" for nil.
func classifyKafkaError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}

	// DNS errors also implement net.Error, check them first.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	msg := strings.ToLower(err.Error())
	for _, p := range kafkaErrorPatterns {
		if strings.Contains(msg, p.substr) {
			return p.class
		}
	}
	return "other"
}

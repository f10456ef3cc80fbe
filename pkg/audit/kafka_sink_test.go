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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestSink builds a sink against a broker nobody listens on. The
// connection is lazy, so construction and close never touch the network.
func newTestSink(t *testing.T, cfg KafkaSinkConfig) *KafkaSink {
	t.Helper()
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = []string{"localhost:9092"}
	}
	if cfg.Topic == "" {
		cfg.Topic = "spark-audit"
	}
	sink, err := NewKafkaSink(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

// testCertPair returns a freshly generated self-signed certificate and
// its key, both PEM encoded.
func testCertPair(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "kafka-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func TestNewKafkaSinkValidation(t *testing.T) {
	tests := []struct {
		name   string
		cfg    KafkaSinkConfig
		errMsg string
	}{
		{
			name: "minimal config",
			cfg: KafkaSinkConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "spark-audit",
			},
		},
		{
			name:   "no brokers",
			cfg:    KafkaSinkConfig{Topic: "spark-audit"},
			errMsg: "at least one Kafka broker is required",
		},
		{
			name:   "no topic",
			cfg:    KafkaSinkConfig{Brokers: []string{"localhost:9092"}},
			errMsg: "Kafka topic is required",
		},
		{
			name: "unknown SASL mechanism",
			cfg: KafkaSinkConfig{
				Brokers: []string{"kafka:9092"},
				Topic:   "spark-audit",
				SASL:    &KafkaSASLConfig{Mechanism: "OAUTH", Username: "u", Password: "p"},
			},
			errMsg: "unsupported SASL mechanism",
		},
		{
			name: "everything set",
			cfg: KafkaSinkConfig{
				Name:             "audit-out",
				Brokers:          []string{"kafka-0:9093", "kafka-1:9093"},
				Topic:            "spark-audit",
				BatchSize:        200,
				BatchTimeout:     2 * time.Second,
				WriteTimeout:     15 * time.Second,
				RequiredAcks:     1,
				CompressionCodec: "zstd",
				TLS:              &KafkaTLSConfig{Enabled: true, InsecureSkipVerify: true},
				SASL:             &KafkaSASLConfig{Mechanism: "SCRAM-SHA-256", Username: "u", Password: "p"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, err := NewKafkaSink(tt.cfg, zaptest.NewLogger(t))
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, sink)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, sink.Close())
		})
	}
}

func TestNewKafkaSinkDefaults(t *testing.T) {
	sink := newTestSink(t, KafkaSinkConfig{})

	assert.Equal(t, "kafka", sink.Name())
	assert.True(t, sink.IsConnected(), "connection state starts optimistic")

	w := sink.writer
	assert.Equal(t, defaultKafkaBatchSize, w.BatchSize)
	assert.Equal(t, defaultKafkaBatchTimeout, w.BatchTimeout)
	assert.Equal(t, defaultKafkaWriteTimeout, w.WriteTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks, "unset acks must mean all replicas")
	assert.Equal(t, kafka.Snappy, w.Compression)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Nil(t, w.Transport, "plaintext sink uses the default transport")
	assert.False(t, w.AllowAutoTopicCreation)
}

func TestNewKafkaSinkCustomSettings(t *testing.T) {
	sink := newTestSink(t, KafkaSinkConfig{
		Name:             "audit-out",
		BatchSize:        50,
		BatchTimeout:     500 * time.Millisecond,
		WriteTimeout:     3 * time.Second,
		RequiredAcks:     1,
		CompressionCodec: "gzip",
		TLS:              &KafkaTLSConfig{Enabled: true, InsecureSkipVerify: true},
		SASL:             &KafkaSASLConfig{Mechanism: "plain", Username: "u", Password: "p"},
	})

	assert.Equal(t, "audit-out", sink.Name())

	w := sink.writer
	assert.Equal(t, 50, w.BatchSize)
	assert.Equal(t, 500*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, 3*time.Second, w.WriteTimeout)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.Equal(t, kafka.Gzip, w.Compression)

	transport, ok := w.Transport.(*kafka.Transport)
	require.True(t, ok, "TLS and SASL need a custom transport")
	assert.NotNil(t, transport.TLS)
	assert.NotNil(t, transport.SASL)
}

func TestBuildTLSConfig(t *testing.T) {
	t.Run("nil and disabled configs yield no TLS", func(t *testing.T) {
		for _, cfg := range []*KafkaTLSConfig{nil, {Enabled: false, CACert: []byte("ignored")}} {
			tlsCfg, err := buildTLSConfig(cfg)
			require.NoError(t, err)
			assert.Nil(t, tlsCfg)
		}
	})

	t.Run("minimal", func(t *testing.T) {
		tlsCfg, err := buildTLSConfig(&KafkaTLSConfig{Enabled: true})
		require.NoError(t, err)
		assert.Equal(t, uint16(tls.VersionTLS12), tlsCfg.MinVersion)
		assert.Nil(t, tlsCfg.RootCAs)
		assert.False(t, tlsCfg.InsecureSkipVerify)
	})

	t.Run("custom CA and client pair", func(t *testing.T) {
		certPEM, keyPEM := testCertPair(t)
		tlsCfg, err := buildTLSConfig(&KafkaTLSConfig{
			Enabled:    true,
			CACert:     certPEM,
			ClientCert: certPEM,
			ClientKey:  keyPEM,
		})
		require.NoError(t, err)
		assert.NotNil(t, tlsCfg.RootCAs)
		assert.Len(t, tlsCfg.Certificates, 1)
	})

	t.Run("garbage CA", func(t *testing.T) {
		_, err := buildTLSConfig(&KafkaTLSConfig{Enabled: true, CACert: []byte("not pem")})
		require.Error(t, err)
	})

	t.Run("garbage client pair", func(t *testing.T) {
		_, err := buildTLSConfig(&KafkaTLSConfig{
			Enabled:    true,
			ClientCert: []byte("not a cert"),
			ClientKey:  []byte("not a key"),
		})
		require.Error(t, err)
	})

	t.Run("client cert without key", func(t *testing.T) {
		certPEM, _ := testCertPair(t)
		_, err := buildTLSConfig(&KafkaTLSConfig{Enabled: true, ClientCert: certPEM})
		require.Error(t, err)
	})
}

func TestBuildSASLMechanism(t *testing.T) {
	tests := []struct {
		mechanism string
		wantName  string
		wantErr   string
	}{
		{mechanism: "PLAIN", wantName: "PLAIN"},
		{mechanism: "plain", wantName: "PLAIN"},
		{mechanism: "SCRAM-SHA-256", wantName: "SCRAM-SHA-256"},
		{mechanism: "scram-sha-512", wantName: "SCRAM-SHA-512"},
		{mechanism: "OAUTH", wantErr: "unsupported SASL mechanism"},
	}

	for _, tt := range tests {
		t.Run(tt.mechanism, func(t *testing.T) {
			mech, err := buildSASLMechanism(&KafkaSASLConfig{
				Mechanism: tt.mechanism,
				Username:  "u",
				Password:  "p",
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, mech.Name())
		})
	}

	t.Run("nil and empty disable SASL", func(t *testing.T) {
		for _, cfg := range []*KafkaSASLConfig{nil, {Username: "u", Password: "p"}} {
			mech, err := buildSASLMechanism(cfg)
			require.NoError(t, err)
			assert.Nil(t, mech)
		}
	})
}

func TestKafkaSinkCloseIdempotent(t *testing.T) {
	sink, err := NewKafkaSink(KafkaSinkConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "spark-audit",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NoError(t, sink.Close())
	assert.NoError(t, sink.Close())
	assert.False(t, sink.IsConnected())
}

func TestKafkaSinkWriteAfterClose(t *testing.T) {
	sink := newTestSink(t, KafkaSinkConfig{})
	require.NoError(t, sink.Close())

	err := sink.Write(context.Background(), &Event{
		ID:        "evt-1",
		Type:      EventSubmissionReceived,
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
		Actor:     Actor{User: "spark-operator@example.com"},
		Target:    Target{Kind: "Submission", Name: "spark-pi"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestKafkaSinkCompression(t *testing.T) {
	tests := []struct {
		codec string
		want  kafka.Compression
	}{
		{codec: "none", want: 0},
		{codec: "gzip", want: kafka.Gzip},
		{codec: "snappy", want: kafka.Snappy},
		{codec: "lz4", want: kafka.Lz4},
		{codec: "zstd", want: kafka.Zstd},
		{codec: "GZIP", want: kafka.Gzip},
		{codec: "", want: kafka.Snappy},
		{codec: "brotli", want: kafka.Snappy},
	}

	for _, tt := range tests {
		t.Run("codec "+tt.codec, func(t *testing.T) {
			sink := newTestSink(t, KafkaSinkConfig{CompressionCodec: tt.codec})
			assert.Equal(t, tt.want, sink.writer.Compression)
		})
	}
}

func TestKafkaMessageKeyedBySubmission(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	event := &Event{
		ID:        "evt-42",
		Type:      EventSubmissionReceived,
		Severity:  SeverityInfo,
		Timestamp: ts,
		Actor:     Actor{User: "alice@example.com"},
		RequestContext: &RequestContext{
			CorrelationID: "corr-1",
			SubmissionID:  "spark-pi-0001",
		},
	}

	msg, err := kafkaMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "spark-pi-0001", string(msg.Key))
	assert.Equal(t, ts, msg.Time)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(EventSubmissionReceived), headers["event-type"])
	assert.Equal(t, string(SeverityInfo), headers["severity"])
	assert.Equal(t, ts.Format(time.RFC3339), headers["timestamp"])
	assert.Equal(t, "alice@example.com", headers["actor"])
	assert.Equal(t, "spark-pi-0001", headers["submission-id"])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.Type, decoded.Type)
}

func TestKafkaMessageWithoutSubmission(t *testing.T) {
	event := &Event{
		ID:        "evt-7",
		Type:      EventAuthFailure,
		Severity:  SeverityCritical,
		Timestamp: time.Now(),
	}

	msg, err := kafkaMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "evt-7", string(msg.Key), "events outside a submission fall back to the event ID")
	for _, h := range msg.Headers {
		assert.NotEqual(t, "submission-id", h.Key)
		assert.NotEqual(t, "actor", h.Key)
	}
}

type fakeNetError struct{ timeout bool }

func (e fakeNetError) Error() string   { return "fake net error" }
func (e fakeNetError) Timeout() bool   { return e.timeout }
func (e fakeNetError) Temporary() bool { return false }

func TestClassifyKafkaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"wrapped deadline", fmt.Errorf("produce: %w", context.DeadlineExceeded), "timeout"},
		{"cancelled", context.Canceled, "cancelled"},
		{"dns", &net.DNSError{Err: "no such host", Name: "kafka"}, "dns"},
		{"net timeout", fakeNetError{timeout: true}, "timeout"},
		{"net other", fakeNetError{}, "network"},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection reset by peer")}, "network"},
		{"sasl", errors.New("SASL handshake failed"), "auth"},
		{"timed out", errors.New("request timed out"), "timeout"},
		{"refused", errors.New("dial tcp: connection refused"), "network"},
		{"leader", errors.New("no leader for partition"), "broker"},
		{"topic", errors.New("unknown topic or partition"), "topic"},
		{"tls", errors.New("x509: certificate signed by unknown authority"), "tls"},
		{"other", errors.New("something odd"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyKafkaError(tt.err))
		})
	}
}

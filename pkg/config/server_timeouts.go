package config

import "time"

// Default HTTP server limits applied when the config file leaves them unset.
const (
	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
	DefaultShutdownTimeout   = 30 * time.Second
)

// Submission defaults for the Kubernetes section.
const (
	DefaultSubmitTimeout      = 2 * time.Minute
	DefaultStatusPollInterval = 2 * time.Second
)

// ServerTimeouts tunes the HTTP server. Durations are strings ("45s", "2m")
// so they can live in YAML next to the rest of the server section.
type ServerTimeouts struct {
	ReadTimeout       string `yaml:"readTimeout"`
	ReadHeaderTimeout string `yaml:"readHeaderTimeout"`
	WriteTimeout      string `yaml:"writeTimeout"`
	IdleTimeout       string `yaml:"idleTimeout"`
	MaxHeaderBytes    int    `yaml:"maxHeaderBytes"`
}

// parseDurationOrDefault parses value, falling back to defaultVal when the
// value is empty, unparsable, or not positive.
func parseDurationOrDefault(value string, defaultVal time.Duration) time.Duration {
	if value == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// All getters are safe on a nil receiver so callers can use
// cfg.Server.Timeouts directly without a presence check.

func (t *ServerTimeouts) GetReadTimeout() time.Duration {
	if t == nil {
		return DefaultReadTimeout
	}
	return parseDurationOrDefault(t.ReadTimeout, DefaultReadTimeout)
}

func (t *ServerTimeouts) GetReadHeaderTimeout() time.Duration {
	if t == nil {
		return DefaultReadHeaderTimeout
	}
	return parseDurationOrDefault(t.ReadHeaderTimeout, DefaultReadHeaderTimeout)
}

func (t *ServerTimeouts) GetWriteTimeout() time.Duration {
	if t == nil {
		return DefaultWriteTimeout
	}
	return parseDurationOrDefault(t.WriteTimeout, DefaultWriteTimeout)
}

func (t *ServerTimeouts) GetIdleTimeout() time.Duration {
	if t == nil {
		return DefaultIdleTimeout
	}
	return parseDurationOrDefault(t.IdleTimeout, DefaultIdleTimeout)
}

func (t *ServerTimeouts) GetMaxHeaderBytes() int {
	if t == nil || t.MaxHeaderBytes <= 0 {
		return DefaultMaxHeaderBytes
	}
	return t.MaxHeaderBytes
}

// GetServerTimeouts never returns nil.
func (s Server) GetServerTimeouts() *ServerTimeouts {
	if s.Timeouts == nil {
		return &ServerTimeouts{}
	}
	return s.Timeouts
}

// GetShutdownTimeout returns the graceful shutdown budget.
func (s Server) GetShutdownTimeout() time.Duration {
	return parseDurationOrDefault(s.ShutdownTimeout, DefaultShutdownTimeout)
}

// GetSubmitTimeout returns the resource creation budget for one submission.
func (k Kubernetes) GetSubmitTimeout() time.Duration {
	return parseDurationOrDefault(k.SubmitTimeout, DefaultSubmitTimeout)
}

// GetStatusPollInterval returns the poll interval for submission status checks.
func (k Kubernetes) GetStatusPollInterval() time.Duration {
	return parseDurationOrDefault(k.StatusPollInterval, DefaultStatusPollInterval)
}

package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/telekom/k8s-spark-launcher/pkg/version"
)

const defaultTimeout = 30 * time.Second

// Client talks to the launcher API.
type Client struct {
	rest *resty.Client
}

// settings collects everything the options configure before New assembles
// the underlying resty client in one place.
type settings struct {
	server    string
	token     string
	userAgent string
	timeout   time.Duration
	debug     bool
	tls       *tls.Config
}

// Option configures the launcher API client.
type Option func(*settings) error

// New assembles a launcher API client. A server URL is mandatory, everything
// else has defaults.
func New(opts ...Option) (*Client, error) {
	s := settings{
		userAgent: version.UserAgent(),
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return nil, err
		}
	}
	if s.server == "" {
		return nil, errors.New("server is required")
	}

	rest := resty.New().
		SetBaseURL(strings.TrimRight(s.server, "/")).
		SetTimeout(s.timeout).
		SetDebug(s.debug).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", s.userAgent)
	if s.token != "" {
		rest.SetAuthToken(s.token)
	}
	if s.tls != nil {
		rest.SetTLSClientConfig(s.tls)
	}
	return &Client{rest: rest}, nil
}

// WithServer sets the launcher API base URL. Only http and https are
// accepted.
func WithServer(server string) Option {
	return func(s *settings) error {
		if server == "" {
			return errors.New("server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("invalid server %q: unsupported scheme %q", server, parsed.Scheme)
		}
		s.server = server
		return nil
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(s *settings) error {
		s.token = token
		return nil
	}
}

// WithUserAgent overrides the default slctl user agent.
func WithUserAgent(userAgent string) Option {
	return func(s *settings) error {
		s.userAgent = userAgent
		return nil
	}
}

// WithTimeout bounds each request including body read.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) error {
		s.timeout = timeout
		return nil
	}
}

// WithDebug turns on resty's request/response tracing on stderr.
func WithDebug(enabled bool) Option {
	return func(s *settings) error {
		s.debug = enabled
		return nil
	}
}

// WithTLSConfig installs a custom trust bundle, or disables verification for
// lab setups.
func WithTLSConfig(caFile string, insecureSkipTLSVerify bool) Option {
	return func(s *settings) error {
		cfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: insecureSkipTLSVerify}
		if caFile != "" {
			pool, err := loadCertPool(caFile)
			if err != nil {
				return err
			}
			cfg.RootCAs = pool
		}
		s.tls = cfg
		return nil
	}
}

func loadCertPool(caFile string) (*x509.CertPool, error) {
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("CA file %s contains no certificates", caFile)
	}
	return pool, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 400 {
		return decodeError(resp)
	}
	return nil
}

// decodeError turns a non-2xx response into an HTTPError, preferring the
// API's own error field over the raw body.
func decodeError(resp *resty.Response) error {
	httpErr := &HTTPError{StatusCode: resp.StatusCode()}

	var apiErr struct {
		Error string `json:"error"`
	}
	body := resp.Body()
	if err := json.Unmarshal(body, &apiErr); err == nil {
		httpErr.Message = strings.TrimSpace(apiErr.Error)
	}
	if httpErr.Message == "" {
		httpErr.Message = strings.TrimSpace(string(body))
	}
	if httpErr.Message == "" {
		httpErr.Message = resp.Status()
	}
	return httpErr
}

// HTTPError carries the status and message of a failed API call.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

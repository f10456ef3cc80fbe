package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/k8s-spark-launcher/pkg/version"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		errMsg string
	}{
		{name: "no options", errMsg: "server is required"},
		{name: "empty server", opts: []Option{WithServer("")}, errMsg: "server is required"},
		{name: "unsupported scheme", opts: []Option{WithServer("ftp://launcher")}, errMsg: "unsupported scheme"},
		{name: "server only", opts: []Option{WithServer("https://launcher.example.com")}},
		{
			name: "fully configured",
			opts: []Option{
				WithServer("https://launcher.example.com"),
				WithToken("sl-token"),
				WithUserAgent("slctl-e2e"),
				WithTimeout(5 * time.Second),
				WithDebug(true),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts...)
			if tt.errMsg != "" {
				require.ErrorContains(t, err, tt.errMsg)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c)
		})
	}
}

func TestDoSendsStandardHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	c, err := New(WithServer(server.URL), WithToken("sl-token"), WithUserAgent("slctl-test"))
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/api/healthz", nil, &out))

	assert.Equal(t, "Bearer sl-token", got.Get("Authorization"))
	assert.Equal(t, "slctl-test", got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "ok", out["status"])
}

func TestDoDefaultUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c, err := New(WithServer(server.URL))
	require.NoError(t, err)
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/api/healthz", nil, nil))

	assert.Equal(t, version.UserAgent(), got)
}

func TestDoPostsJSONBody(t *testing.T) {
	var (
		contentType string
		payload     map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c, err := New(WithServer(server.URL))
	require.NoError(t, err)

	body := map[string]string{"namespace": "data-jobs"}
	require.NoError(t, c.do(context.Background(), http.MethodPost, "/api/v1/submissions", body, nil))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "data-jobs", payload["namespace"])
}

func TestDoDecodesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"submission not found: sub-1"}`))
	}))
	defer server.Close()

	c, err := New(WithServer(server.URL))
	require.NoError(t, err)

	err = c.do(context.Background(), http.MethodGet, "/api/v1/submissions/sub-1", nil, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "submission not found: sub-1", httpErr.Message)
}

func TestDoErrorMessageFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "plain text body", status: http.StatusBadGateway, body: "upstream exploded", wantMsg: "upstream exploded"},
		{name: "empty body falls back to status", status: http.StatusInternalServerError, wantMsg: "500 Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := New(WithServer(server.URL))
			require.NoError(t, err)

			err = c.do(context.Background(), http.MethodGet, "/broken", nil, nil)

			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
		})
	}
}

func TestWithTLSConfig(t *testing.T) {
	t.Run("missing CA file", func(t *testing.T) {
		_, err := New(WithServer("https://launcher.example.com"), WithTLSConfig("/does/not/exist.pem", false))
		require.ErrorContains(t, err, "reading CA file")
	})

	t.Run("CA file without certificates", func(t *testing.T) {
		caFile := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(caFile, []byte("not a certificate"), 0o600))

		_, err := New(WithServer("https://launcher.example.com"), WithTLSConfig(caFile, false))
		require.ErrorContains(t, err, "contains no certificates")
	})

	t.Run("insecure without CA file", func(t *testing.T) {
		c, err := New(WithServer("https://launcher.example.com"), WithTLSConfig("", true))
		require.NoError(t, err)
		require.NotNil(t, c)
	})
}

func TestHTTPErrorString(t *testing.T) {
	err := &HTTPError{StatusCode: http.StatusForbidden, Message: "access denied"}
	assert.Equal(t, "request failed (403): access denied", err.Error())
}

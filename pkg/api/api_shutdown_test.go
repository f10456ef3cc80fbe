package api

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/telekom/k8s-spark-launcher/pkg/config"
)

func newShutdownTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Server: config.Server{ListenAddress: ":0"},
	}
	server := NewServer(zaptest.NewLogger(t), cfg, true, nil)
	require.NotNil(t, server)
	return server
}

func TestServerClose_StopsLimiterSweepers(t *testing.T) {
	server := newShutdownTestServer(t)
	require.NotNil(t, server.readLimiter)
	require.NotNil(t, server.callerLimiter)

	server.Close()
	// The sweepers stop via sync.Once, so a second Close is harmless.
	server.Close()
}

func TestServerClose_NilLimiters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server := &Server{}
	server.Close()
}

func TestServerHandler_ServesUntilClose(t *testing.T) {
	server := newShutdownTestServer(t)

	handler := server.Handler()
	require.NotNil(t, handler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	server.Close()
}

func TestServerClose_AfterConcurrentRequests(t *testing.T) {
	server := newShutdownTestServer(t)
	handler := server.Handler()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	server.Close()
}

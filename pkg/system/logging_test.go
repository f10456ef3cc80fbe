package system

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	return c
}

func TestRequestLoggerRoundTrip(t *testing.T) {
	c := newTestContext(t)
	fallback := zap.NewNop().Sugar()
	stored := zap.NewNop().Sugar()

	SetRequestLogger(c, stored)
	require.Same(t, stored, RequestLogger(c, fallback))
}

func TestRequestLoggerFallsBack(t *testing.T) {
	fallback := zap.NewNop().Sugar()

	assert.Same(t, fallback, RequestLogger(nil, fallback), "nil context")

	c := newTestContext(t)
	assert.Same(t, fallback, RequestLogger(c, fallback), "nothing stored")

	c.Set(ReqLoggerKey, "not-a-logger")
	assert.Same(t, fallback, RequestLogger(c, fallback), "foreign value under the key")
}

func TestSetRequestLoggerNilSafe(t *testing.T) {
	SetRequestLogger(nil, zap.NewNop().Sugar())

	c := newTestContext(t)
	SetRequestLogger(c, nil)
	_, ok := c.Get(ReqLoggerKey)
	assert.False(t, ok, "nil logger must not be stored")
}

func TestCallerLoggerAttachesPrincipal(t *testing.T) {
	c := newTestContext(t)
	c.Set("user", "alice@example.com")

	core, recorded := observer.New(zap.DebugLevel)
	log := CallerLogger(c, zap.New(core).Sugar())
	log.Infow("probe")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "alice@example.com", entries[0].ContextMap()["user"])
}

func TestCallerLoggerAnonymous(t *testing.T) {
	log := zap.NewNop().Sugar()

	assert.Same(t, log, CallerLogger(nil, log), "nil context")
	assert.Nil(t, CallerLogger(newTestContext(t), nil), "nil logger")

	c := newTestContext(t)
	assert.Same(t, log, CallerLogger(c, log), "no principal set")

	c.Set("user", "")
	assert.Same(t, log, CallerLogger(c, log), "empty principal")
}

func TestNewTestLogger(t *testing.T) {
	log := NewTestLogger(t)
	require.NotNil(t, log)
	log.Infow("logger wired", "user", "nobody")
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/k8s-spark-launcher/pkg/audit"
	"github.com/telekom/k8s-spark-launcher/pkg/config"
	"github.com/telekom/k8s-spark-launcher/pkg/metrics"
	"github.com/telekom/k8s-spark-launcher/pkg/ratelimit"
	"github.com/telekom/k8s-spark-launcher/pkg/system"
	"github.com/telekom/k8s-spark-launcher/pkg/version"
)

// CorrelationIDHeader carries the request correlation ID. Incoming values are
// reused; otherwise one is generated and returned on the response.
const CorrelationIDHeader = "X-Correlation-ID"

// maxBodyBytes bounds request bodies. Submission payloads are small property
// maps; anything larger is rejected before JSON binding.
const maxBodyBytes = 1 << 20

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Server struct {
	gin    *gin.Engine
	config config.Config
	auth   *AuthHandler

	readLimiter   *ratelimit.Limiter
	callerLimiter *ratelimit.CallerLimiter
}

func NewServer(log *zap.Logger, cfg config.Config,
	debug bool, auth *AuthHandler,
) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		correlationID(log.Sugar()),
		limitBodySize(),
	)

	// Gin trusts every proxy by default. Restrict to the configured ones so
	// a forged X-Forwarded-For cannot spoof the client IP the rate limiters
	// and the audit trail key on.
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Sugar().Errorw("Failed to set trusted proxies", "error", err)
	}

	if debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: []string{"http://localhost:8080", "http://127.0.0.1:8080"},
				AllowMethods: []string{"GET", "POST", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	if auth == nil && cfg.AuthorizationServer.Enabled {
		auth = NewAuth(log.Sugar(), cfg)
	}

	s := &Server{
		gin:           engine,
		config:        cfg,
		auth:          auth,
		readLimiter:   ratelimit.New(ratelimit.ReadConfig()),
		callerLimiter: ratelimit.NewCaller(ratelimit.DefaultCallerConfig()),
	}

	engine.Use(s.readLimiter.Middleware())

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
			"path":  c.Request.URL.Path,
		})
	})

	engine.GET("healthz", s.healthz)
	engine.GET("metrics", gin.WrapH(metrics.MetricsHandler()))

	public := engine.Group("api", s.optionalIdentity(), s.callerLimiter.Middleware())
	public.GET("config", s.getConfig)
	public.GET("version", s.getVersion)

	return s
}

// RegisterAll mounts the controllers under /api. Each controller's own
// handlers (typically the auth middleware) run first, then the caller
// limiter, so authenticated callers are accounted by principal.
func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("api")
	for _, c := range controllers {
		g := r.Group(c.BasePath(), c.Handlers()...)
		g.Use(s.callerLimiter.Middleware())
		if err := c.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// Handler exposes the engine for callers that own the http.Server, so listen
// timeouts and graceful shutdown stay in one place.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Close stops the rate limiter sweepers.
func (s *Server) Close() {
	if s.readLimiter != nil {
		s.readLimiter.Stop()
	}
	if s.callerLimiter != nil {
		s.callerLimiter.Stop()
	}
}

// optionalIdentity attaches the verified user identity when the request
// carries a valid token, without requiring one. Public endpoints use it to
// grant authenticated callers the higher rate limit.
func (s *Server) optionalIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.auth != nil {
			if user := s.auth.tryExtractUserIdentity(c); user != "" {
				c.Set("user", user)
			}
		}
		c.Next()
	}
}

// PublicConfig is the subset of the launcher configuration exposed to
// unauthenticated clients.
type PublicConfig struct {
	AuthorizationServer PublicAuthorizationServer `json:"authorizationServer"`
	Spark               PublicSpark               `json:"spark"`
}

type PublicAuthorizationServer struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
}

type PublicSpark struct {
	Properties map[string]string `json:"properties,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, PublicConfig{
		AuthorizationServer: PublicAuthorizationServer{
			Enabled: s.config.AuthorizationServer.Enabled,
			URL:     s.config.AuthorizationServer.URL,
		},
		Spark: PublicSpark{
			Properties: s.config.Spark.Properties,
			Labels:     s.config.Spark.Labels,
		},
	})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current())
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func correlationID(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("correlationID", id)
		c.Writer.Header().Set(CorrelationIDHeader, id)
		system.SetRequestLogger(c, log.With("correlationID", id))
		c.Request = c.Request.WithContext(audit.WithCorrelationID(c.Request.Context(), id))
		c.Next()
	}
}

func limitBodySize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		}
		c.Next()
	}
}

package ratelimit

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/telekom/k8s-spark-launcher/pkg/apiresponses"
)

// Config sizes the token buckets of a Limiter.
type Config struct {
	// Rate is the sustained number of requests per second a caller may make.
	Rate float64
	// Burst is the bucket capacity, the number of requests a caller may make
	// at once before Rate applies.
	Burst int
	// SweepInterval is how often idle buckets are swept.
	SweepInterval time.Duration
	// MaxIdle is how long a bucket survives without being used.
	MaxIdle time.Duration
}

// CallerConfig sizes a CallerLimiter: anonymous callers share the stricter
// per-IP budget, authenticated callers get a per-principal budget.
type CallerConfig struct {
	Anonymous     Config
	Authenticated Config
	// PrincipalKey is the gin context key the auth middleware stores the
	// caller identity under.
	PrincipalKey string
}

// ReadConfig is the budget for read endpoints: status lookups, config and
// version queries.
func ReadConfig() Config {
	return Config{
		Rate:          20,
		Burst:         50,
		SweepInterval: time.Minute,
		MaxIdle:       5 * time.Minute,
	}
}

// SubmitConfig is the budget for submission creation. Every accepted
// submission turns into cluster resources, so the budget is much smaller
// than ReadConfig.
func SubmitConfig() Config {
	return Config{
		Rate:          5,
		Burst:         10,
		SweepInterval: time.Minute,
		MaxIdle:       5 * time.Minute,
	}
}

// DefaultCallerConfig is the budget split for endpoints behind optional
// authentication. Authenticated principals are known callers and get the
// wider budget.
func DefaultCallerConfig() CallerConfig {
	return CallerConfig{
		Anonymous: Config{
			Rate:          10,
			Burst:         20,
			SweepInterval: time.Minute,
			MaxIdle:       5 * time.Minute,
		},
		Authenticated: Config{
			Rate:          50,
			Burst:         100,
			SweepInterval: time.Minute,
			MaxIdle:       10 * time.Minute,
		},
		PrincipalKey: "user",
	}
}

// bucket pairs a caller's token bucket with its last use, for the sweeper.
type bucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

// Limiter hands out one token bucket per caller key and sweeps buckets that
// sit idle longer than MaxIdle. Keys are whatever identifies the caller to
// the endpoint, client IPs or principal names.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     Config
	done    chan struct{}
	stop    sync.Once
}

// New builds a Limiter and starts its sweeper. Stop releases the sweeper.
func New(cfg Config) *Limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 5 * time.Minute
	}
	l := &Limiter{
		buckets: map[string]*bucket{},
		cfg:     cfg,
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow reports whether the caller behind key has budget for one more
// request, consuming a token when it does.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.seen = time.Now()
	return b.tokens.Allow()
}

// Middleware throttles requests by client IP and answers exhausted callers
// with the standard 429 payload.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			apiresponses.RespondTooManyRequests(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Stop shuts the sweeper down. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stop.Do(func() { close(l.done) })
}

// Tracked returns the number of callers currently holding a bucket.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Config returns the effective configuration, with defaults applied.
func (l *Limiter) Config() Config {
	return l.cfg
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.dropIdle()
		}
	}
}

func (l *Limiter) dropIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.cfg.MaxIdle)
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// CallerLimiter throttles authenticated callers per principal and anonymous
// callers per client IP, with separate budgets. It must sit behind the auth
// middleware so the principal is already resolved.
type CallerLimiter struct {
	anonymous    *Limiter
	principals   *Limiter
	principalKey string
}

// NewCaller builds a CallerLimiter from the given budget split.
func NewCaller(cfg CallerConfig) *CallerLimiter {
	if cfg.PrincipalKey == "" {
		cfg.PrincipalKey = "user"
	}
	return &CallerLimiter{
		anonymous:    New(cfg.Anonymous),
		principals:   New(cfg.Authenticated),
		principalKey: cfg.PrincipalKey,
	}
}

// Allow reports whether the request has budget left, and whether it was
// accounted against the principal budget rather than the anonymous one.
func (cl *CallerLimiter) Allow(c *gin.Context) (allowed, authenticated bool) {
	if v, ok := c.Get(cl.principalKey); ok {
		if principal, ok := v.(string); ok && principal != "" {
			return cl.principals.Allow(principal), true
		}
	}
	return cl.anonymous.Allow(c.ClientIP()), false
}

// Middleware throttles requests with the split budgets. Anonymous callers
// are pointed at authentication, which moves them to the wider budget.
func (cl *CallerLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, authenticated := cl.Allow(c)
		if allowed {
			c.Next()
			return
		}
		msg := ""
		if !authenticated {
			msg = "rate limit exceeded, authenticate for a higher limit"
		}
		apiresponses.RespondTooManyRequests(c, msg)
		c.Abort()
	}
}

// Stop shuts both sweepers down.
func (cl *CallerLimiter) Stop() {
	cl.anonymous.Stop()
	cl.principals.Stop()
}

// TrackedAnonymous returns the number of anonymous callers holding a bucket.
func (cl *CallerLimiter) TrackedAnonymous() int {
	return cl.anonymous.Tracked()
}

// TrackedPrincipals returns the number of principals holding a bucket.
func (cl *CallerLimiter) TrackedPrincipals() int {
	return cl.principals.Tracked()
}

package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/telekom/k8s-spark-launcher/pkg/apiresponses"
	"github.com/telekom/k8s-spark-launcher/pkg/audit"
	"github.com/telekom/k8s-spark-launcher/pkg/config"
)

const (
	AuthHeaderKey = "Authorization"
)

// identityClaims is the precedence order for deriving the caller identity.
var identityClaims = []string{"preferred_username", "email", "sub"}

// AuthHandler verifies bearer tokens against the authorization server's JWKS.
type AuthHandler struct {
	jwks *keyfunc.JWKS
	log  *zap.SugaredLogger

	audit *audit.Service
}

func NewAuth(log *zap.SugaredLogger, cfg config.Config) *AuthHandler {
	srv := cfg.AuthorizationServer
	options := keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshTimeout:  10 * time.Second,
		RefreshErrorHandler: func(err error) {
			log.Errorf("failed to refresh JWKS configuration: %v", err)
		},
		Client: jwksHTTPClient(srv, log),
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(srv.URL, "/"), srv.JWKSEndpoint)
	jwks, err := keyfunc.Get(url, options)
	if err != nil {
		log.Fatalf("Could not get JWKS from %s: %v", url, err)
	}

	return &AuthHandler{
		jwks: jwks,
		log:  log,
	}
}

// jwksHTTPClient picks the HTTP client for JWKS fetches. A configured CA PEM
// wins over insecureSkipVerify; with neither, nil is returned and keyfunc
// falls back to the default client with system roots.
func jwksHTTPClient(srv config.AuthorizationServer, log *zap.SugaredLogger) *http.Client {
	switch {
	case srv.CertificateAuthority != "":
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(srv.CertificateAuthority)) {
			log.Fatalf("Could not parse certificateAuthority PEM from configuration")
		}
		return &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}}
	case srv.InsecureSkipVerify:
		log.Warn("authorizationServer.insecureSkipVerify=true: TLS certificate verification is DISABLED (dev/e2e only)")
		return &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}
	default:
		return nil
	}
}

// WithAuditService attaches the audit trail so rejected requests are recorded.
func (a *AuthHandler) WithAuditService(svc *audit.Service) *AuthHandler {
	a.audit = svc
	return a
}

func (a *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		bearer, ok := bearerToken(c)
		if !ok {
			a.recordRejection(c, "no bearer token")
			apiresponses.RespondBadRequest(c, "No Bearer token provided in Authorization header")
			c.Abort()
			return
		}

		token, claims, err := a.parseVerified(bearer)
		if err != nil {
			a.recordRejection(c, err.Error())
			apiresponses.RespondUnauthorizedWithMessage(c, err.Error())
			c.Abort()
			return
		}

		c.Set("token", token)
		c.Set("user_id", claims["sub"])
		c.Set("user", firstStringClaim(claims, identityClaims...))

		c.Next()
	}
}

// bearerToken pulls the bearer token off the request. A consumed header is
// stripped so the credential cannot leak into access logs; non-Bearer
// headers are left alone.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	c.Request.Header.Del(AuthHeaderKey)
	return strings.TrimPrefix(header, "Bearer "), true
}

// parseVerified parses and verifies the token signature. Signing keys
// rotate; when the key ID is unknown the cached JWKS may be up to an hour
// stale, so one forced refresh is attempted before giving up.
func (a *AuthHandler) parseVerified(bearer string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(bearer, &claims, a.jwks.Keyfunc)
	if err != nil && strings.Contains(err.Error(), "key ID") {
		if rErr := a.jwks.Refresh(context.Background(), keyfunc.RefreshOptions{}); rErr == nil {
			token, err = jwt.ParseWithClaims(bearer, &claims, a.jwks.Keyfunc)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	return token, claims, nil
}

// tryExtractUserIdentity returns the verified identity of the caller, or ""
// when the request carries no token or the token does not verify. It never
// rejects the request; public endpoints use it for rate limiting only.
func (a *AuthHandler) tryExtractUserIdentity(c *gin.Context) string {
	bearer, ok := bearerToken(c)
	if !ok || a.jwks == nil {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(bearer, &claims, a.jwks.Keyfunc); err != nil {
		return ""
	}
	return firstStringClaim(claims, identityClaims...)
}

func (a *AuthHandler) recordRejection(c *gin.Context, reason string) {
	if a.audit == nil {
		return
	}
	a.audit.AuthFailure(c.Request.Context(), audit.Actor{
		SourceIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}, c.Request.URL.Path, reason)
}

// firstStringClaim returns the first non-empty string claim among keys.
func firstStringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

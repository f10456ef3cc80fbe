// Package api implements the launcher's HTTP API server (Gin-based),
// providing REST endpoints for preparing and submitting Spark driver
// submissions, public config and version lookup, and JWT bearer
// authentication against an authorization server's JWKS.
package api

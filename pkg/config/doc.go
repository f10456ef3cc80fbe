// Package config handles launcher configuration loading from YAML files:
// the HTTP server, the authorization server, Kubernetes access, operator
// Spark defaults, and the audit trail.
package config

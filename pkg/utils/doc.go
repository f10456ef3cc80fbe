// Package utils carries helpers shared across the launcher binaries: the
// Kubernetes scheme and default logger construction.
package utils

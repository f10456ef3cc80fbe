// Package apiresponses provides standardized HTTP API response helpers
// (error, not-found, unauthorized, conflict, etc.) shared by the API
// server handlers.
package apiresponses

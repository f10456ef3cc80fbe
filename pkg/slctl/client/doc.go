// Package client implements the HTTP client for the slctl CLI to communicate
// with the spark-launcher API server.
package client

// Package metrics defines Prometheus metrics for the spark launcher,
// covering submission preparation and creation, service name fallbacks,
// and per-kind resource creation outcomes.
package metrics

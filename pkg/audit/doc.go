// Package audit provides the audit trail for the launcher, capturing
// submission lifecycle events and forwarding them to configurable sinks
// (log, webhook, Kafka) through a bounded non-blocking queue.
package audit

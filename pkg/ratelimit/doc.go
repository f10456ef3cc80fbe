// Package ratelimit throttles launcher API traffic with token buckets keyed
// by caller: one bucket per client IP or authenticated principal, idle
// buckets swept in the background, exhausted callers answered with the
// standard 429 payload.
package ratelimit

// Package naming resolves the Kubernetes service names and in-cluster
// hostnames of Spark driver services, and sanitizes caller-supplied
// application names into RFC 1035/1123 compatible resource prefixes and
// label values.
package naming

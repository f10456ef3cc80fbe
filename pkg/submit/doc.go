// Package submit runs the submission pipeline: it threads the configuration
// snapshot through the preparation features, accumulates the Kubernetes
// resources they produce, creates them on the cluster, and reports their
// readiness.
package submit

// Package driver prepares the Kubernetes-side network identity of a Spark
// driver: it resolves the driver service name, builds the headless RPC
// service and the NodePort UI service, folds the derived hostname and ports
// back into the submission configuration, and writes the effective
// properties into the ConfigMap the driver pod mounts.
package driver

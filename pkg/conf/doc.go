// Package conf holds the immutable Spark configuration snapshot passed through
// the submission pipeline, with typed accessors for the well-known driver and
// Kubernetes properties and loaders for properties files and YAML maps.
package conf

package utils

import (
	"fmt"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// CreateScheme returns the runtime scheme shared by all launcher Kubernetes
// clients. Driver services and configmaps are plain core resources, so only
// the core API group is registered.
func CreateScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("registering core types: %w", err)
	}
	return scheme, nil
}

// SetupLogger builds the zap logger for CLI processes: human-readable in
// debug mode, JSON production output otherwise.
func SetupLogger(debug bool) (*zap.Logger, error) {
	build := zap.NewProduction
	if debug {
		build = zap.NewDevelopment
	}
	logger, err := build()
	if err != nil {
		return nil, fmt.Errorf("building logger (debug=%t): %w", debug, err)
	}
	return logger, nil
}

package utils

import (
	"testing"

	corev1 "k8s.io/api/core/v1"
)

func TestCreateScheme(t *testing.T) {
	scheme, err := CreateScheme()
	if err != nil {
		t.Fatalf("CreateScheme() error = %v", err)
	}

	for _, kind := range []string{"Service", "ConfigMap"} {
		if !scheme.Recognizes(corev1.SchemeGroupVersion.WithKind(kind)) {
			t.Errorf("scheme does not recognize corev1.%s", kind)
		}
	}
}

func TestSetupLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		logger, err := SetupLogger(debug)
		if err != nil {
			t.Fatalf("SetupLogger(%t) error = %v", debug, err)
		}
		logger.Info("logger probe")
		_ = logger.Sync()
	}
}

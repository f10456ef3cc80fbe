package cmd

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/clientcmd"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/k8s-spark-launcher/pkg/driver"
	"github.com/telekom/k8s-spark-launcher/pkg/naming"
	"github.com/telekom/k8s-spark-launcher/pkg/submit"
	"github.com/telekom/k8s-spark-launcher/pkg/utils"
)

// buildKubeClient builds a controller-runtime client from the kubeconfig for
// direct mode. KUBECONFIG and the default search path apply unless
// --kubeconfig is given.
func buildKubeClient(rt *runtimeState) (ctrlclient.Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if rt.kubeconfigPath != "" {
		loadingRules.ExplicitPath = rt.kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: rt.kubeContext}
	restCfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	scheme, err := utils.CreateScheme()
	if err != nil {
		return nil, err
	}
	return ctrlclient.New(restCfg, ctrlclient.Options{Scheme: scheme})
}

// commandLogger returns the logger for direct-mode pipeline runs. Pipeline
// logs go to stderr so they never corrupt JSON or YAML output; without
// --verbose they are dropped entirely.
func commandLogger(rt *runtimeState) *zap.SugaredLogger {
	if !rt.verbose {
		return zap.NewNop().Sugar()
	}
	logger, err := utils.SetupLogger(true)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// driverResourceRefs derives the resources the submit pipeline produces for
// the given application name or resolved driver service name.
func driverResourceRefs(name, namespace string) []submit.ResourceRef {
	serviceName := name
	if !strings.HasSuffix(serviceName, naming.DriverServiceSuffix) {
		serviceName = naming.ToResourcePrefix(name) + naming.DriverServiceSuffix
	}
	prefix := strings.TrimSuffix(serviceName, naming.DriverServiceSuffix)

	serviceGVK := corev1.SchemeGroupVersion.WithKind("Service")
	configMapGVK := corev1.SchemeGroupVersion.WithKind("ConfigMap")
	return []submit.ResourceRef{
		{GVK: serviceGVK, Name: serviceName, Namespace: namespace},
		{GVK: serviceGVK, Name: naming.UIServiceName(serviceName), Namespace: namespace},
		{GVK: configMapGVK, Name: prefix + driver.ConfigMapSuffix, Namespace: namespace},
	}
}

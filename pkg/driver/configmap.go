package driver

import (
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/k8s-spark-launcher/pkg/conf"
)

const (
	// ConfigMapSuffix is appended to the resource prefix to form the name of
	// the driver properties ConfigMap.
	ConfigMapSuffix = "-driver-conf-map"

	// PropertiesFileName is the ConfigMap key, and the file name under the
	// driver's configuration mount.
	PropertiesFileName = "spark.properties"
)

// ConfigMapFeature materializes the effective submission configuration as a
// ConfigMap the driver pod mounts. It must run after every step that edits
// the configuration, so the written properties carry the resolved hostname
// and ports.
type ConfigMapFeature struct {
	prefix string
	labels map[string]string
	log    *zap.SugaredLogger

	resources []client.Object
}

// NewConfigMapFeature returns a driver properties ConfigMap step for the
// given resource prefix and labels. The labels map is copied.
func NewConfigMapFeature(prefix string, labels map[string]string, log *zap.SugaredLogger) *ConfigMapFeature {
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return &ConfigMapFeature{
		prefix: prefix,
		labels: copied,
		log:    log,
	}
}

// Name implements submit.Feature.
func (f *ConfigMapFeature) Name() string {
	return "driver-configmap"
}

// Configure implements submit.Feature. The configuration passes through
// unchanged; the snapshot it sees is the one written out.
func (f *ConfigMapFeature) Configure(c *conf.SparkConf) (*conf.SparkConf, error) {
	name := f.prefix + ConfigMapSuffix
	f.log.Debugw("Prepared driver properties ConfigMap", "configMap", name, "properties", c.Len())

	f.resources = []client.Object{&corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "ConfigMap",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.Namespace(),
			Labels:    f.labels,
		},
		Data: map[string]string{
			PropertiesFileName: c.Render(),
		},
	}}
	return c, nil
}

// Resources implements submit.Feature.
func (f *ConfigMapFeature) Resources() []client.Object {
	return f.resources
}

package driver

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/k8s-spark-launcher/pkg/conf"
	"github.com/telekom/k8s-spark-launcher/pkg/metrics"
	"github.com/telekom/k8s-spark-launcher/pkg/naming"
)

// ErrConfigConflict marks submission configurations that pin properties owned
// by the driver service step.
var ErrConfigConflict = errors.New("configuration conflict")

// ConfigConflictError reports a property the caller set but the driver
// service step must control. It unwraps to ErrConfigConflict.
type ConfigConflictError struct {
	Key    string
	Reason string
}

func (e *ConfigConflictError) Error() string {
	return fmt.Sprintf("%s must not be set: %s", e.Key, e.Reason)
}

func (e *ConfigConflictError) Unwrap() error {
	return ErrConfigConflict
}

// ServiceFeature is the driver service preparation step. Configure resolves
// the service name, prepares the internal (headless RPC) and external
// (NodePort UI) services, and returns a configuration carrying the derived
// driver hostname and explicit port values. The prepared services are
// available from Resources afterwards.
//
// A feature instance prepares one submission; it is not safe for concurrent
// use.
type ServiceFeature struct {
	prefix string
	labels map[string]string
	clk    clock.PassiveClock
	log    *zap.SugaredLogger

	resolvedName string
	fellBack     bool
	resources    []client.Object
}

// NewServiceFeature returns a driver service step for the given resource
// prefix and selector labels. The labels map is copied.
func NewServiceFeature(prefix string, labels map[string]string, clk clock.PassiveClock, log *zap.SugaredLogger) *ServiceFeature {
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return &ServiceFeature{
		prefix: prefix,
		labels: copied,
		clk:    clk,
		log:    log,
	}
}

// Name implements submit.Feature.
func (f *ServiceFeature) Name() string {
	return "driver-service"
}

// Configure implements submit.Feature. It fails with a ConfigConflictError
// before building anything when the configuration pins the driver bind
// address or hostname.
func (f *ServiceFeature) Configure(c *conf.SparkConf) (*conf.SparkConf, error) {
	if c.Contains(conf.DriverBindAddressKey) {
		return nil, &ConfigConflictError{
			Key:    conf.DriverBindAddressKey,
			Reason: "the driver bind address is managed and set to the driver pod IP",
		}
	}
	if c.Contains(conf.DriverHostKey) {
		return nil, &ConfigConflictError{
			Key:    conf.DriverHostKey,
			Reason: "the driver hostname is managed via the driver service",
		}
	}

	driverPort, err := c.DriverPort()
	if err != nil {
		return nil, err
	}
	blockManagerPort, err := c.BlockManagerPort()
	if err != nil {
		return nil, err
	}
	uiPort, err := c.UIPort()
	if err != nil {
		return nil, err
	}
	uiNodePort, err := c.UINodePort()
	if err != nil {
		return nil, err
	}

	f.resolvedName, f.fellBack = naming.ResolveDriverServiceName(f.prefix, f.clk, f.log)
	if f.fellBack {
		metrics.ServiceNameFallbacks.Inc()
	}

	namespace := c.Namespace()
	internal := f.buildInternalService(namespace, driverPort, blockManagerPort)
	external := f.buildUIService(namespace, uiPort, uiNodePort)
	f.resources = []client.Object{internal, external}

	hostname := naming.ServiceFQDN(f.resolvedName, namespace, c.DNSDomain())
	f.log.Debugw("Prepared driver services",
		"service", f.resolvedName,
		"uiService", naming.UIServiceName(f.resolvedName),
		"hostname", hostname,
		"driverPort", driverPort,
		"blockManagerPort", blockManagerPort)

	updated := c.
		With(conf.DriverHostKey, hostname).
		With(conf.DriverPortKey, strconv.Itoa(driverPort)).
		With(conf.BlockManagerPortKey, strconv.Itoa(blockManagerPort))
	return updated, nil
}

// Resources implements submit.Feature. The internal service precedes the UI
// service.
func (f *ServiceFeature) Resources() []client.Object {
	return f.resources
}

// ResolvedName returns the driver service name chosen by Configure.
func (f *ServiceFeature) ResolvedName() string {
	return f.resolvedName
}

// FellBack reports whether Configure replaced the preferred name with a
// clock-derived one.
func (f *ServiceFeature) FellBack() bool {
	return f.fellBack
}

func (f *ServiceFeature) buildInternalService(namespace string, driverPort, blockManagerPort int) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Service",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      f.resolvedName,
			Namespace: namespace,
			Labels:    f.labels,
		},
		Spec: corev1.ServiceSpec{
			ClusterIP: corev1.ClusterIPNone,
			Selector:  f.labels,
			Ports: []corev1.ServicePort{
				{
					Name:       naming.DriverPortName,
					Port:       int32(driverPort),
					TargetPort: intstr.FromInt(driverPort),
				},
				{
					Name:       naming.BlockManagerPortName,
					Port:       int32(blockManagerPort),
					TargetPort: intstr.FromInt(blockManagerPort),
				},
			},
		},
	}
}

func (f *ServiceFeature) buildUIService(namespace string, uiPort, uiNodePort int) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Service",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.UIServiceName(f.resolvedName),
			Namespace: namespace,
			Labels:    f.labels,
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeNodePort,
			Selector: f.labels,
			Ports: []corev1.ServicePort{
				{
					Name:       naming.UIPortName,
					Port:       int32(uiPort),
					TargetPort: intstr.FromInt(uiPort),
					NodePort:   int32(uiNodePort),
				},
			},
		},
	}
}

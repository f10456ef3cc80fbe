package conf

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Well-known Spark property keys read and written by the submission pipeline.
const (
	// AppNameKey names the application; it seeds resource name prefixes.
	AppNameKey = "spark.app.name"

	// DriverBindAddressKey pins the local address the driver binds to.
	// The driver service step refuses configurations that set it.
	DriverBindAddressKey = "spark.driver.bindAddress"

	// DriverHostKey is the hostname executors use to reach the driver.
	// The driver service step owns this key.
	DriverHostKey = "spark.driver.host"

	// DriverPortKey is the driver RPC port.
	DriverPortKey = "spark.driver.port"

	// BlockManagerPortKey is the block manager data transfer port.
	BlockManagerPortKey = "spark.blockManager.port"

	// UIPortKey is the driver web UI port.
	UIPortKey = "spark.ui.port"

	// UINodePortKey requests a fixed node port for the exposed driver UI.
	// Zero lets the platform allocate one.
	UINodePortKey = "spark.kubernetes.driver.service.uiNodePort"

	// NamespaceKey is the Kubernetes namespace the application runs in.
	NamespaceKey = "spark.kubernetes.namespace"

	// DNSDomainKey is the cluster DNS domain used when deriving the driver FQDN.
	DNSDomainKey = "spark.kubernetes.dns.domain"
)

// Defaults applied by the typed accessors when a key is unset.
const (
	DefaultDriverPort       = 7078
	DefaultBlockManagerPort = 7079
	DefaultUIPort           = 4040
	DefaultNamespace        = "default"
	DefaultDNSDomain        = "svc.cluster.local"
)

// SparkConf is an immutable snapshot of Spark properties. Mutating operations
// return a new snapshot and never touch the receiver, so a conf handed to a
// pipeline step can be retained by the caller and compared afterwards.
type SparkConf struct {
	props map[string]string
}

// New returns an empty configuration snapshot.
func New() *SparkConf {
	return &SparkConf{props: map[string]string{}}
}

// FromMap builds a snapshot from the given properties. The map is copied.
func FromMap(props map[string]string) *SparkConf {
	c := &SparkConf{props: make(map[string]string, len(props))}
	for k, v := range props {
		c.props[k] = v
	}
	return c
}

// Get returns the raw value for key and whether it is present.
func (c *SparkConf) Get(key string) (string, bool) {
	v, ok := c.props[key]
	return v, ok
}

// GetOrDefault returns the value for key, or def when the key is unset.
func (c *SparkConf) GetOrDefault(key, def string) string {
	if v, ok := c.props[key]; ok {
		return v
	}
	return def
}

// GetInt parses the value for key as an integer, returning def when the key is
// unset or empty. A malformed value is an error naming the key.
func (c *SparkConf) GetInt(key string, def int) (int, error) {
	v, ok := c.props[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s value %q: %w", key, v, err)
	}
	return n, nil
}

// GetBool parses the value for key as a boolean, returning def when the key is
// unset or empty.
func (c *SparkConf) GetBool(key string, def bool) (bool, error) {
	v, ok := c.props[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s value %q: %w", key, v, err)
	}
	return b, nil
}

// Contains reports whether key is set, regardless of its value.
func (c *SparkConf) Contains(key string) bool {
	_, ok := c.props[key]
	return ok
}

// Keys returns all set keys in sorted order.
func (c *SparkConf) Keys() []string {
	keys := maps.Keys(c.props)
	slices.Sort(keys)
	return keys
}

// Props returns a copy of all properties.
func (c *SparkConf) Props() map[string]string {
	props := make(map[string]string, len(c.props))
	for k, v := range c.props {
		props[k] = v
	}
	return props
}

// Len returns the number of set properties.
func (c *SparkConf) Len() int {
	return len(c.props)
}

// With returns a new snapshot with key set to value. The receiver is unchanged.
func (c *SparkConf) With(key, value string) *SparkConf {
	next := make(map[string]string, len(c.props)+1)
	for k, v := range c.props {
		next[k] = v
	}
	next[key] = value
	return &SparkConf{props: next}
}

// WithAll returns a new snapshot with all given properties set, overwriting
// existing values key by key. The receiver is unchanged.
func (c *SparkConf) WithAll(props map[string]string) *SparkConf {
	next := make(map[string]string, len(c.props)+len(props))
	for k, v := range c.props {
		next[k] = v
	}
	for k, v := range props {
		next[k] = v
	}
	return &SparkConf{props: next}
}

// AppName returns spark.app.name, or the empty string when unset.
func (c *SparkConf) AppName() string {
	return c.GetOrDefault(AppNameKey, "")
}

// Namespace returns spark.kubernetes.namespace, defaulting to "default".
func (c *SparkConf) Namespace() string {
	return c.GetOrDefault(NamespaceKey, DefaultNamespace)
}

// DNSDomain returns spark.kubernetes.dns.domain, defaulting to "svc.cluster.local".
func (c *SparkConf) DNSDomain() string {
	return c.GetOrDefault(DNSDomainKey, DefaultDNSDomain)
}

// DriverPort returns spark.driver.port, defaulting to 7078.
func (c *SparkConf) DriverPort() (int, error) {
	return c.GetInt(DriverPortKey, DefaultDriverPort)
}

// BlockManagerPort returns spark.blockManager.port, defaulting to 7079.
func (c *SparkConf) BlockManagerPort() (int, error) {
	return c.GetInt(BlockManagerPortKey, DefaultBlockManagerPort)
}

// UIPort returns spark.ui.port, defaulting to 4040.
func (c *SparkConf) UIPort() (int, error) {
	return c.GetInt(UIPortKey, DefaultUIPort)
}

// UINodePort returns spark.kubernetes.driver.service.uiNodePort, defaulting
// to 0 (platform-allocated).
func (c *SparkConf) UINodePort() (int, error) {
	return c.GetInt(UINodePortKey, 0)
}

// Render serializes the snapshot as properties-file text, one "key=value"
// line per property in sorted key order. This is the format the driver pod
// reads back from its configuration ConfigMap.
func (c *SparkConf) Render() string {
	var out []byte
	for _, k := range c.Keys() {
		out = append(out, k...)
		out = append(out, '=')
		out = append(out, c.props[k]...)
		out = append(out, '\n')
	}
	return string(out)
}

package cli

import (
	"crypto/tls"
	"flag"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Environment variables that back the flags, so deployments can skip
// long argument lists in the pod spec.
const (
	envConfigPath        = "SPARK_LAUNCHER_CONFIG_PATH"
	envDisableKubernetes = "SPARK_LAUNCHER_DISABLE_KUBERNETES"
	envEnableHTTP2       = "ENABLE_HTTP2"
)

// Config holds everything settable on the command line. File-based
// configuration lives in pkg/config, flags cover only what must be
// known before the config file is read.
type Config struct {
	Debug             bool
	ConfigPath        string
	DisableKubernetes bool
	EnableHTTP2       bool
}

// Parse registers the launcher flags on the default FlagSet and parses
// os.Args. The kubeconfig flag is not registered here, controller-runtime
// owns it and adds it to the same FlagSet.
func Parse() *Config {
	config := &Config{}

	flag.BoolVar(&config.Debug, "debug", false,
		"Enable debug level logging")
	flag.StringVar(&config.ConfigPath, "config-path", getEnvString(envConfigPath, "./config.yaml"),
		"Path to the launcher configuration file")
	flag.BoolVar(&config.DisableKubernetes, "disable-kubernetes", getEnvBool(envDisableKubernetes, false),
		"Run without cluster access: submissions are prepared and returned but cannot be submitted")
	flag.BoolVar(&config.EnableHTTP2, "enable-http2", getEnvBool(envEnableHTTP2, false),
		"If set, HTTP/2 will be enabled for the API server")

	flag.Parse()
	return config
}

// Print logs the effective flag values once at startup.
func (c *Config) Print(log *zap.SugaredLogger) {
	log.Infow("CLI Configuration",
		"debug", c.Debug,
		"config_path", c.ConfigPath,
		"disable_kubernetes", c.DisableKubernetes,
		"enable_http2", c.EnableHTTP2,
	)
}

// DisableHTTP2 restricts TLS ALPN to HTTP/1.1. HTTP/2 stays opt-in
// because of CVE-2023-44487 and CVE-2024-3156.
func DisableHTTP2(c *tls.Config) {
	c.NextProtos = []string{"http/1.1"}
}

func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool accepts everything strconv.ParseBool does plus yes/no in
// any casing. Unset or unparsable values fall back to defaultVal.
func getEnvBool(key string, defaultVal bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	switch strings.ToLower(val) {
	case "yes":
		return true
	case "no":
		return false
	}
	if parsed, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
		return parsed
	}
	return defaultVal
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/telekom/k8s-spark-launcher/pkg/audit"
	"github.com/telekom/k8s-spark-launcher/pkg/telemetry"
)

// EnvConfigPath is the environment variable that overrides the default
// configuration file path.
const EnvConfigPath = "SPARK_LAUNCHER_CONFIG_PATH"

// Server configures the HTTP listener of the launcher API.
type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TLSCertFile    string   `yaml:"tlsCertFile"`
	TLSKeyFile     string   `yaml:"tlsKeyFile"`
	TrustedProxies []string `yaml:"trustedProxies"` // IPs/CIDRs to trust for X-Forwarded-For headers (e.g., ["10.0.0.0/8", "127.0.0.1"])

	// Timeouts optionally tunes the HTTP server timeouts. Nil means defaults.
	Timeouts *ServerTimeouts `yaml:"timeouts"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM (e.g. "30s").
	ShutdownTimeout string `yaml:"shutdownTimeout"`
}

// AuthorizationServer configures JWT bearer authentication for the API.
// When disabled, all endpoints are served unauthenticated.
type AuthorizationServer struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	JWKSEndpoint string `yaml:"jwksEndpoint"`
	// CertificateAuthority contains a PEM encoded CA certificate for TLS
	// validation of the JWKS endpoint.
	CertificateAuthority string `yaml:"certificateAuthority"`
	InsecureSkipVerify   bool   `yaml:"insecureSkipVerify"`
}

// Kubernetes configures cluster access and submission behavior.
type Kubernetes struct {
	// Context selects a kubeconfig context for out-of-cluster runs. Empty
	// means in-cluster configuration or the kubeconfig default.
	Context string `yaml:"context"`
	// SubmitTimeout bounds resource creation for one submission (e.g. "2m").
	SubmitTimeout string `yaml:"submitTimeout"`
	// StatusPollInterval controls how often submitted resources are polled
	// for readiness (e.g. "2s").
	StatusPollInterval string `yaml:"statusPollInterval"`
}

// Spark carries operator-level defaults applied to every submission.
type Spark struct {
	// Properties are base Spark properties merged under each submission's
	// own properties; the submission wins on conflict.
	Properties map[string]string `yaml:"properties"`
	// Labels are stamped onto every resource the launcher creates.
	Labels map[string]string `yaml:"labels"`
}

type Config struct {
	Server              Server              `yaml:"server"`
	AuthorizationServer AuthorizationServer `yaml:"authorizationServer"`
	Kubernetes          Kubernetes          `yaml:"kubernetes"`
	Spark               Spark               `yaml:"spark"`
	Telemetry           telemetry.Config    `yaml:"telemetry"`
	Audit               audit.Config        `yaml:"audit"`
}

// Defaults returns the configuration used when fields are absent from the
// config file.
func Defaults() Config {
	return Config{
		Server: Server{
			ListenAddress: ":8080",
		},
		AuthorizationServer: AuthorizationServer{
			JWKSEndpoint: ".well-known/jwks.json",
		},
	}
}

// Load loads the launcher configuration from a file path.
// If configPath is empty, the SPARK_LAUNCHER_CONFIG_PATH environment variable
// is consulted, then "./config.yaml". Fields absent from the file keep their
// defaults.
func Load(configPath ...string) (Config, error) {
	var path string
	switch {
	case len(configPath) > 0 && configPath[0] != "":
		path = configPath[0]
	case os.Getenv(EnvConfigPath) != "":
		path = os.Getenv(EnvConfigPath)
	default:
		path = "./config.yaml"
	}

	config := Defaults()

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open launcher config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
	}
	return config, nil
}

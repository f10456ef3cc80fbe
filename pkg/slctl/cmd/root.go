package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telekom/k8s-spark-launcher/pkg/slctl/output"
)

type Config struct {
	OutputWriter io.Writer
}

type runtimeState struct {
	outputFormat          string
	serverOverride        string
	tokenOverride         string
	caFile                string
	insecureSkipTLSVerify bool
	kubeconfigPath        string
	kubeContext           string
	verbose               bool
	writer                io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:   "slctl",
		Short: "Spark launcher CLI",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			// Flags win over their environment counterparts.
			fromEnv(&rt.serverOverride, "SLCTL_SERVER")
			fromEnv(&rt.tokenOverride, "SLCTL_TOKEN")
			fromEnv(&rt.outputFormat, "SLCTL_OUTPUT")
			rt.verbose = rt.verbose || strings.EqualFold(os.Getenv("SLCTL_VERBOSE"), "true")

			if rt.outputFormat != "" && !output.Format(rt.outputFormat).Valid() {
				return fmt.Errorf("unknown output format: %s", rt.outputFormat)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.serverOverride, "server", "", "Launcher API server; when set, commands go through the server instead of the cluster")
	root.PersistentFlags().StringVar(&rt.tokenOverride, "token", "", "Bearer token for the launcher API")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().StringVar(&rt.kubeconfigPath, "kubeconfig", "", "Path to the kubeconfig file for direct mode")
	root.PersistentFlags().StringVar(&rt.kubeContext, "kube-context", "", "Kubeconfig context override")
	root.PersistentFlags().StringVar(&rt.caFile, "ca-file", "", "CA bundle for the launcher API")
	root.PersistentFlags().BoolVar(&rt.insecureSkipTLSVerify, "insecure-skip-tls-verify", false, "Skip TLS verification for the launcher API")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose output")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewSubmitCommand(),
		NewRenderCommand(),
		NewStatusCommand(),
		NewDeleteCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

// fromEnv fills target from the environment unless a flag already set it.
func fromEnv(target *string, env string) {
	if *target == "" {
		*target = os.Getenv(env)
	}
}

// getRuntime pulls the shared CLI state out of the command context.
func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	if rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState); ok && rt != nil {
		return rt, nil
	}
	return nil, errors.New("runtime not initialized")
}

func (rt *runtimeState) OutputFormat() string {
	if rt.outputFormat == "" {
		return "table"
	}
	return rt.outputFormat
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer == nil {
		return os.Stdout
	}
	return rt.writer
}

// ServerMode reports whether commands talk to a launcher API server instead
// of the cluster.
func (rt *runtimeState) ServerMode() bool {
	return rt.serverOverride != ""
}

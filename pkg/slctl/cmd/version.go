package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/k8s-spark-launcher/pkg/slctl/output"
	"github.com/telekom/k8s-spark-launcher/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show slctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			info := version.Current()

			format := output.Format(rt.OutputFormat())
			if format == output.FormatTable {
				_, _ = fmt.Fprintf(rt.Writer(), "slctl %s (commit: %s, built: %s)\n",
					info.Version, info.GitCommit, info.BuildDate)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, info)
		},
	}
}

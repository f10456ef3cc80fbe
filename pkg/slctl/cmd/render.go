package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telekom/k8s-spark-launcher/pkg/slctl/output"
)

func NewRenderCommand() *cobra.Command {
	var (
		propertiesFile string
		prefix         string
		namespace      string
		labels         map[string]string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the driver resources for a Spark application",
		Long: `Run the preparation pipeline locally and write the resulting manifests
as a multi-document YAML stream. Nothing is created and no cluster or server
access is needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			sparkConf, err := loadProperties(propertiesFile)
			if err != nil {
				return err
			}
			sub, _, err := runPipeline(commandLogger(rt), sparkConf, prefix, namespace, labels)
			if err != nil {
				return err
			}
			return output.WriteManifests(rt.Writer(), sub.Resources)
		},
	}

	cmd.Flags().StringVarP(&propertiesFile, "filename", "f", "", "Spark properties file (spark-defaults.conf format, or YAML with .yaml/.yml extension)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Resource name prefix; defaults to the spark.app.name property")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Target namespace; overrides the namespace property")
	cmd.Flags().StringToStringVar(&labels, "label", nil, "Label to put on rendered resources (key=value, repeatable)")
	_ = cmd.MarkFlagRequired("filename")

	return cmd
}

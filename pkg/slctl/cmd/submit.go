package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/k8s-spark-launcher/pkg/conf"
	"github.com/telekom/k8s-spark-launcher/pkg/driver"
	"github.com/telekom/k8s-spark-launcher/pkg/naming"
	"github.com/telekom/k8s-spark-launcher/pkg/slctl/client"
	"github.com/telekom/k8s-spark-launcher/pkg/slctl/output"
	"github.com/telekom/k8s-spark-launcher/pkg/submit"
)

const submitTimeout = 30 * time.Second

func NewSubmitCommand() *cobra.Command {
	var (
		propertiesFile string
		prefix         string
		namespace      string
		labels         map[string]string
		dryRun         bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Prepare and submit a Spark application",
		Long: `Prepare the driver service resources for a Spark application and create
them. In direct mode the pipeline runs locally and the resources are created
through the kubeconfig; with --server set the launcher API does both. With
--dry-run nothing is created: direct mode renders the manifests, server mode
asks the launcher to prepare only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			sparkConf, err := loadProperties(propertiesFile)
			if err != nil {
				return err
			}

			if rt.ServerMode() {
				apiClient, err := buildClient(rt)
				if err != nil {
					return err
				}
				req := client.SubmissionRequest{
					Name:       prefix,
					Namespace:  namespace,
					Properties: sparkConf.Props(),
					Labels:     labels,
				}
				sub, err := apiClient.Submissions().Create(context.Background(), req, client.SubmissionCreateOptions{Submit: !dryRun})
				if err != nil {
					return err
				}
				return writeSubmission(rt, sub)
			}

			log := commandLogger(rt)
			sub, service, err := runPipeline(log, sparkConf, prefix, namespace, labels)
			if err != nil {
				return err
			}
			if dryRun {
				return output.WriteManifests(rt.Writer(), sub.Resources)
			}

			kube, err := buildKubeClient(rt)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
			defer cancel()
			if err := submit.NewClient(kube, log).Create(ctx, sub); err != nil {
				return err
			}
			return writeSubmission(rt, localSubmissionView(sub, service, true))
		},
	}

	cmd.Flags().StringVarP(&propertiesFile, "filename", "f", "", "Spark properties file (spark-defaults.conf format, or YAML with .yaml/.yml extension)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Resource name prefix; defaults to the spark.app.name property")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Target namespace; overrides the namespace property")
	cmd.Flags().StringToStringVar(&labels, "label", nil, "Label to put on created resources (key=value, repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Prepare without creating resources")
	_ = cmd.MarkFlagRequired("filename")

	return cmd
}

// loadProperties reads the application properties from a spark-defaults.conf
// style file, or from flat YAML when the extension says so.
func loadProperties(path string) (*conf.SparkConf, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("opening properties file %s: %w", path, err)
		}
		return conf.FromYAML(content)
	default:
		return conf.Load(path)
	}
}

// runPipeline prepares a submission locally the same way the launcher API
// does: resolve the resource prefix, then run the driver service and
// ConfigMap steps over the configuration.
func runPipeline(log *zap.SugaredLogger, sparkConf *conf.SparkConf, prefix, namespace string, labels map[string]string) (*submit.Submission, *driver.ServiceFeature, error) {
	if namespace != "" {
		sparkConf = sparkConf.With(conf.NamespaceKey, namespace)
	}
	name := prefix
	if name == "" {
		name = sparkConf.AppName()
	}
	resourcePrefix := naming.ToResourcePrefix(name)

	service := driver.NewServiceFeature(resourcePrefix, labels, clock.RealClock{}, log)
	configMap := driver.NewConfigMapFeature(resourcePrefix, labels, log)
	sub, err := submit.NewPipeline(log, service, configMap).Run(sparkConf)
	if err != nil {
		return nil, nil, err
	}
	return sub, service, nil
}

// localSubmissionView shapes a locally prepared submission like the server's
// response, so both modes print the same thing.
func localSubmissionView(sub *submit.Submission, service *driver.ServiceFeature, submitted bool) *client.Submission {
	return &client.Submission{
		ID:               sub.ID,
		ServiceName:      service.ResolvedName(),
		UsedFallbackName: service.FellBack(),
		Namespace:        sub.Conf.Namespace(),
		Submitted:        submitted,
		Properties:       sub.Conf.Props(),
		Resources:        resourceInfos(sub.Resources),
	}
}

func resourceInfos(objs []ctrlclient.Object) []client.ResourceInfo {
	infos := make([]client.ResourceInfo, 0, len(objs))
	for _, obj := range objs {
		infos = append(infos, client.ResourceInfo{
			Kind:      obj.GetObjectKind().GroupVersionKind().Kind,
			Name:      obj.GetName(),
			Namespace: obj.GetNamespace(),
		})
	}
	return infos
}

func writeSubmission(rt *runtimeState, sub *client.Submission) error {
	format := output.Format(rt.OutputFormat())
	if format == output.FormatTable {
		output.WriteSubmissionTable(rt.Writer(), []client.Submission{*sub})
		return nil
	}
	return output.WriteObject(rt.Writer(), format, sub)
}

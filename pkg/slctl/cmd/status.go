package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/k8s-spark-launcher/pkg/slctl/client"
	"github.com/telekom/k8s-spark-launcher/pkg/slctl/output"
	"github.com/telekom/k8s-spark-launcher/pkg/submit"
)

const statusPollInterval = 2 * time.Second

func NewStatusCommand() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "status <id|name>",
		Short: "Show the status of a submission",
		Long: `Show the resources of a submission and their readiness. With --server set
the argument is the submission ID returned by the launcher API. In direct mode
it is the application name or driver service name, and the resources are
checked against the cluster.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if rt.ServerMode() {
				apiClient, err := buildClient(rt)
				if err != nil {
					return err
				}
				status, err := apiClient.Submissions().Get(context.Background(), args[0])
				if err != nil {
					return err
				}
				return writeStatus(rt, status)
			}

			kube, err := buildKubeClient(rt)
			if err != nil {
				return err
			}
			refs := driverResourceRefs(args[0], namespace)
			waiter := submit.NewWaiter(kube, statusPollInterval, commandLogger(rt))
			statuses := waiter.Check(context.Background(), refs)

			view := &client.SubmissionStatus{
				Namespace: namespace,
				Resources: refInfos(refs),
				Statuses:  statusInfos(statuses),
				Summary:   submit.Summarize(statuses),
			}
			return writeStatus(rt, view)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace of the submission (direct mode)")

	return cmd
}

func refInfos(refs []submit.ResourceRef) []client.ResourceInfo {
	infos := make([]client.ResourceInfo, 0, len(refs))
	for _, ref := range refs {
		infos = append(infos, client.ResourceInfo{
			Kind:      ref.GVK.Kind,
			Name:      ref.Name,
			Namespace: ref.Namespace,
		})
	}
	return infos
}

func statusInfos(statuses []submit.ResourceStatus) []client.ResourceStatusInfo {
	infos := make([]client.ResourceStatusInfo, 0, len(statuses))
	for _, s := range statuses {
		infos = append(infos, client.ResourceStatusInfo{
			Kind:      s.Ref.GVK.Kind,
			Name:      s.Ref.Name,
			Namespace: s.Ref.Namespace,
			Status:    s.Status.String(),
			Message:   s.Message,
		})
	}
	return infos
}

func writeStatus(rt *runtimeState, status *client.SubmissionStatus) error {
	format := output.Format(rt.OutputFormat())
	if format != output.FormatTable {
		return output.WriteObject(rt.Writer(), format, status)
	}
	if len(status.Statuses) > 0 {
		output.WriteStatusTable(rt.Writer(), status.Statuses)
		if status.Summary != "" {
			_, _ = fmt.Fprintln(rt.Writer(), status.Summary)
		}
		return nil
	}
	output.WriteResourceTable(rt.Writer(), status.Resources)
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func NewDeleteCommand() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete the driver resources of a submission",
		Long: `Delete the driver services and properties ConfigMap of a submission from
the cluster. The argument is the application name or driver service name.
Resources that are already gone are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			kube, err := buildKubeClient(rt)
			if err != nil {
				return err
			}
			for _, ref := range driverResourceRefs(args[0], namespace) {
				obj := &unstructured.Unstructured{}
				obj.SetGroupVersionKind(ref.GVK)
				obj.SetName(ref.Name)
				obj.SetNamespace(ref.Namespace)
				if err := kube.Delete(context.Background(), obj); err != nil {
					if apierrors.IsNotFound(err) {
						continue
					}
					return fmt.Errorf("deleting %s %s: %w", ref.GVK.Kind, ref.Name, err)
				}
				_, _ = fmt.Fprintf(rt.Writer(), "%s/%s deleted\n", strings.ToLower(ref.GVK.Kind), ref.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace of the submission")

	return cmd
}

package submit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/k8s-spark-launcher/pkg/metrics"
)

// Client creates the resources of a prepared submission on the cluster.
//
// Creation is in order and fail-fast: the first error aborts the run and
// already created resources are left in place. There are no retries; a name
// conflict is surfaced to the caller, who owns the decision to resubmit.
type Client struct {
	kube client.Client
	log  *zap.SugaredLogger
}

// NewClient returns a submission client backed by the given Kubernetes client.
func NewClient(kube client.Client, log *zap.SugaredLogger) *Client {
	return &Client{
		kube: kube,
		log:  log,
	}
}

// Create creates all resources of the submission in order.
func (c *Client) Create(ctx context.Context, sub *Submission) error {
	log := c.log.With("submission", sub.ID)

	for _, obj := range sub.Resources {
		kind := c.kindOf(obj)
		namespace := obj.GetNamespace()

		if err := c.kube.Create(ctx, obj); err != nil {
			metrics.SubmissionsFailed.WithLabelValues(namespace, "create").Inc()
			if apierrors.IsAlreadyExists(err) {
				metrics.ResourceConflicts.WithLabelValues(namespace, kind).Inc()
				return fmt.Errorf("%s %q already exists in namespace %s: %w", kind, obj.GetName(), namespace, err)
			}
			return fmt.Errorf("creating %s %q in namespace %s: %w", kind, obj.GetName(), namespace, err)
		}

		metrics.ResourcesCreated.WithLabelValues(namespace, kind).Inc()
		log.Infow("Created resource", "kind", kind, "name", obj.GetName(), "namespace", namespace)
	}

	metrics.SubmissionsSubmitted.WithLabelValues(sub.Conf.Namespace()).Inc()
	return nil
}

// kindOf resolves the kind for logs and metrics, preferring the object's
// TypeMeta and falling back to the client scheme.
func (c *Client) kindOf(obj client.Object) string {
	if kind := obj.GetObjectKind().GroupVersionKind().Kind; kind != "" {
		return kind
	}
	gvk, err := c.kube.GroupVersionKindFor(obj)
	if err != nil {
		return fmt.Sprintf("%T", obj)
	}
	return gvk.Kind
}

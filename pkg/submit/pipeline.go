package submit

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/k8s-spark-launcher/pkg/conf"
	"github.com/telekom/k8s-spark-launcher/pkg/metrics"
)

// Feature is one preparation step of a submission. Configure receives the
// current configuration snapshot and returns the next one; the Kubernetes
// resources the step produced are available from Resources afterwards.
//
// Feature instances are single-use: a Pipeline run drives each feature
// exactly once.
type Feature interface {
	Name() string
	Configure(c *conf.SparkConf) (*conf.SparkConf, error)
	Resources() []client.Object
}

// Submission is the outcome of a pipeline run: the effective configuration
// and the resources to create, in creation order.
type Submission struct {
	// ID identifies the submission in the API, logs, and audit trail.
	ID string

	// Conf is the configuration snapshot after all features ran.
	Conf *conf.SparkConf

	// Resources lists the objects to create, caller-provided extras first,
	// then each feature's output in feature order.
	Resources []client.Object
}

// Pipeline applies features in order. The first feature error aborts the run;
// no partial submission is returned.
type Pipeline struct {
	features []Feature
	extra    []client.Object
	log      *zap.SugaredLogger
}

// NewPipeline builds a pipeline over the given features, applied in argument
// order.
func NewPipeline(log *zap.SugaredLogger, features ...Feature) *Pipeline {
	return &Pipeline{
		features: features,
		log:      log,
	}
}

// WithExtraResources prepends caller-built objects (for example a driver pod
// built elsewhere) to the submission's resource list.
func (p *Pipeline) WithExtraResources(objs ...client.Object) *Pipeline {
	p.extra = append(p.extra, objs...)
	return p
}

// Run executes the pipeline on the given configuration snapshot and returns
// the prepared submission. The input snapshot is never modified.
func (p *Pipeline) Run(c *conf.SparkConf) (*Submission, error) {
	id := uuid.NewString()
	log := p.log.With("submission", id)

	current := c
	resources := make([]client.Object, 0, len(p.extra))
	resources = append(resources, p.extra...)

	for _, feature := range p.features {
		next, err := feature.Configure(current)
		if err != nil {
			metrics.SubmissionsFailed.WithLabelValues(current.Namespace(), feature.Name()).Inc()
			return nil, fmt.Errorf("feature %s: %w", feature.Name(), err)
		}
		current = next
		resources = append(resources, feature.Resources()...)
		log.Debugw("Applied submission feature", "feature", feature.Name(), "resources", len(feature.Resources()))
	}

	metrics.SubmissionsPrepared.WithLabelValues(current.Namespace()).Inc()
	log.Infow("Prepared submission", "namespace", current.Namespace(), "resources", len(resources))

	return &Submission{
		ID:        id,
		Conf:      current,
		Resources: resources,
	}, nil
}

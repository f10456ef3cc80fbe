package api

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/k8s-spark-launcher/pkg/apiresponses"
	"github.com/telekom/k8s-spark-launcher/pkg/audit"
	"github.com/telekom/k8s-spark-launcher/pkg/conf"
	"github.com/telekom/k8s-spark-launcher/pkg/config"
	"github.com/telekom/k8s-spark-launcher/pkg/driver"
	"github.com/telekom/k8s-spark-launcher/pkg/naming"
	"github.com/telekom/k8s-spark-launcher/pkg/ratelimit"
	"github.com/telekom/k8s-spark-launcher/pkg/submit"
	"github.com/telekom/k8s-spark-launcher/pkg/system"
)

// tracerName is the OpenTelemetry instrumentation scope for this package.
const tracerName = "github.com/telekom/k8s-spark-launcher/pkg/api"

// SubmissionRequest is the payload of POST /api/submissions.
type SubmissionRequest struct {
	// Name of the application, used to derive resource names. Falls back to
	// the spark.app.name property when empty.
	Name string `json:"name"`

	// Namespace overrides spark.kubernetes.namespace.
	Namespace string `json:"namespace"`

	// Properties in Spark notation, merged over the operator defaults.
	// Submission values win.
	Properties map[string]string `json:"properties"`

	// Labels stamped onto the driver resources, merged over the operator
	// labels.
	Labels map[string]string `json:"labels"`
}

// ResourceInfo describes one prepared Kubernetes resource.
type ResourceInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// SubmissionResponse is returned from POST /api/submissions.
type SubmissionResponse struct {
	ID               string            `json:"id"`
	ServiceName      string            `json:"serviceName"`
	UsedFallbackName bool              `json:"usedFallbackName"`
	Namespace        string            `json:"namespace"`
	Submitted        bool              `json:"submitted"`
	Properties       map[string]string `json:"properties"`
	Resources        []ResourceInfo    `json:"resources"`
}

// ResourceStatusInfo is the observed state of one submission resource.
type ResourceStatusInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// SubmissionStatusResponse is returned from GET /api/submissions/:id.
type SubmissionStatusResponse struct {
	ID        string               `json:"id"`
	Namespace string               `json:"namespace"`
	Resources []ResourceInfo       `json:"resources"`
	Statuses  []ResourceStatusInfo `json:"statuses,omitempty"`
	Summary   string               `json:"summary,omitempty"`
}

// SubmissionsController serves submission preparation and status lookup.
// With a nil Kubernetes client it runs in prepare-only mode: submissions are
// prepared and returned, but ?submit=true is answered with 503.
type SubmissionsController struct {
	log        *zap.SugaredLogger
	config     config.Config
	kube       client.Client
	store      *submit.Store
	waiter     *submit.Waiter
	audit      *audit.Service
	clock      clock.PassiveClock
	middleware []gin.HandlerFunc

	submitLimiter *ratelimit.Limiter
}

func NewSubmissionsController(log *zap.SugaredLogger,
	cfg config.Config,
	kube client.Client,
	store *submit.Store,
	auditSvc *audit.Service,
	clk clock.PassiveClock,
	middleware ...gin.HandlerFunc,
) *SubmissionsController {
	if clk == nil {
		clk = clock.RealClock{}
	}
	controller := &SubmissionsController{
		log:           log,
		config:        cfg,
		kube:          kube,
		store:         store,
		audit:         auditSvc,
		clock:         clk,
		middleware:    middleware,
		submitLimiter: ratelimit.New(ratelimit.SubmitConfig()),
	}
	if kube != nil {
		controller.waiter = submit.NewWaiter(kube, cfg.Kubernetes.GetStatusPollInterval(), log)
	}
	return controller
}

func (SubmissionsController) BasePath() string {
	return "submissions"
}

func (sc *SubmissionsController) Register(rg *gin.RouterGroup) error {
	rg.POST("", sc.submitLimiter.Middleware(), measured("createSubmission"), sc.handleCreateSubmission)
	rg.GET("/:id", measured("getSubmission"), sc.handleGetSubmission)
	return nil
}

func (sc *SubmissionsController) Handlers() []gin.HandlerFunc {
	return sc.middleware
}

// Close stops the submission rate limiter.
func (sc *SubmissionsController) Close() {
	sc.submitLimiter.Stop()
}

func (sc *SubmissionsController) handleCreateSubmission(c *gin.Context) {
	reqLog := system.CallerLogger(c, system.RequestLogger(c, sc.log))
	ctx := c.Request.Context()
	actor := requestActor(c)

	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid request body", err.Error())
		return
	}

	wantSubmit := c.Query("submit") == "true"
	if wantSubmit && sc.kube == nil {
		apiresponses.RespondServiceUnavailable(c, "kubernetes")
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "submission.create")
	defer span.End()
	span.SetAttributes(attribute.Bool("submission.submit", wantSubmit))

	sparkConf := conf.FromMap(sc.config.Spark.Properties).WithAll(req.Properties)
	if req.Namespace != "" {
		sparkConf = sparkConf.With(conf.NamespaceKey, req.Namespace)
	}

	name := req.Name
	if name == "" {
		name = sparkConf.AppName()
	}
	prefix := naming.ToResourcePrefix(name)

	labels := make(map[string]string, len(sc.config.Spark.Labels)+len(req.Labels))
	for k, v := range sc.config.Spark.Labels {
		labels[k] = v
	}
	for k, v := range req.Labels {
		labels[k] = v
	}

	service := driver.NewServiceFeature(prefix, labels, sc.clock, reqLog)
	configMap := driver.NewConfigMapFeature(prefix, labels, reqLog)
	pipeline := submit.NewPipeline(reqLog, service, configMap)

	sub, err := pipeline.Run(sparkConf)
	if err != nil {
		span.RecordError(err)
		var conflict *driver.ConfigConflictError
		if errors.As(err, &conflict) {
			if sc.audit != nil {
				sc.audit.SubmissionConflict(ctx, actor, "", conflict.Key, conflict.Reason)
			}
			apiresponses.RespondConflict(c, err.Error())
			return
		}
		if sc.audit != nil {
			sc.audit.SubmissionFailed(ctx, actor, "", sparkConf.Namespace(), "prepare", err)
		}
		apiresponses.RespondInternalError(c, "prepare submission", err, reqLog)
		return
	}

	namespace := sub.Conf.Namespace()
	span.SetAttributes(
		attribute.String("submission.id", sub.ID),
		attribute.String("submission.namespace", namespace),
	)
	if service.FellBack() && sc.audit != nil {
		sc.audit.ServiceNameFallback(ctx, sub.ID, namespace,
			prefix+naming.DriverServiceSuffix, service.ResolvedName())
	}

	sc.store.Put(sub)
	if sc.audit != nil {
		sc.audit.SubmissionPrepared(ctx, actor, sub.ID, namespace, service.ResolvedName(), len(sub.Resources))
	}

	submitted := false
	if wantSubmit {
		if !sc.createResources(c, reqLog, actor, sub) {
			return
		}
		submitted = true
	}

	apiresponses.RespondCreated(c, SubmissionResponse{
		ID:               sub.ID,
		ServiceName:      service.ResolvedName(),
		UsedFallbackName: service.FellBack(),
		Namespace:        namespace,
		Submitted:        submitted,
		Properties:       sub.Conf.Props(),
		Resources:        resourceInfos(sub),
	})
}

// createResources creates the prepared objects on the cluster. It writes the
// error response itself and reports whether creation succeeded.
func (sc *SubmissionsController) createResources(c *gin.Context, reqLog *zap.SugaredLogger, actor audit.Actor, sub *submit.Submission) bool {
	namespace := sub.Conf.Namespace()
	ctx, cancel := context.WithTimeout(c.Request.Context(), sc.config.Kubernetes.GetSubmitTimeout())
	defer cancel()

	if err := submit.NewClient(sc.kube, reqLog).Create(ctx, sub); err != nil {
		if apierrors.IsAlreadyExists(err) {
			if sc.audit != nil {
				sc.audit.SubmissionFailed(ctx, actor, sub.ID, namespace, "submit", err)
			}
			apiresponses.RespondConflict(c, err.Error())
			return false
		}
		if sc.audit != nil {
			sc.audit.SubmissionFailed(ctx, actor, sub.ID, namespace, "submit", err)
		}
		apiresponses.RespondInternalError(c, "submit submission", err, reqLog)
		return false
	}

	if sc.audit != nil {
		sc.audit.SubmissionSubmitted(ctx, actor, sub.ID, namespace, len(sub.Resources))
		for _, info := range resourceInfos(sub) {
			sc.audit.ResourceCreated(ctx, sub.ID, info.Kind, info.Name, info.Namespace)
		}
	}
	return true
}

func (sc *SubmissionsController) handleGetSubmission(c *gin.Context) {
	reqLog := system.CallerLogger(c, system.RequestLogger(c, sc.log))

	id := c.Param("id")
	sub, ok := sc.store.Get(id)
	if !ok {
		apiresponses.RespondNotFound(c, "submission", id)
		return
	}

	resp := SubmissionStatusResponse{
		ID:        sub.ID,
		Namespace: sub.Conf.Namespace(),
		Resources: resourceInfos(sub),
	}

	if sc.waiter != nil {
		refs, err := sc.waiter.Refs(sub)
		if err != nil {
			apiresponses.RespondInternalError(c, "resolve submission resources", err, reqLog)
			return
		}
		statuses := sc.waiter.Check(c.Request.Context(), refs)
		resp.Statuses = make([]ResourceStatusInfo, 0, len(statuses))
		for _, s := range statuses {
			resp.Statuses = append(resp.Statuses, ResourceStatusInfo{
				Kind:      s.Ref.GVK.Kind,
				Name:      s.Ref.Name,
				Namespace: s.Ref.Namespace,
				Status:    s.Status.String(),
				Message:   s.Message,
			})
		}
		resp.Summary = submit.Summarize(statuses)
	}

	apiresponses.RespondOK(c, resp)
}

func resourceInfos(sub *submit.Submission) []ResourceInfo {
	infos := make([]ResourceInfo, 0, len(sub.Resources))
	for _, obj := range sub.Resources {
		infos = append(infos, ResourceInfo{
			Kind:      obj.GetObjectKind().GroupVersionKind().Kind,
			Name:      obj.GetName(),
			Namespace: obj.GetNamespace(),
		})
	}
	return infos
}

func requestActor(c *gin.Context) audit.Actor {
	actor := audit.Actor{
		SourceIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if user := c.GetString("user"); user != "" {
		actor.User = user
	}
	return actor
}

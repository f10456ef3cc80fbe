package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Submission lifecycle metrics
	SubmissionsPrepared = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_submissions_prepared_total",
		Help: "Total number of submissions that were prepared successfully",
	}, []string{"namespace"})
	SubmissionsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_submissions_submitted_total",
		Help: "Total number of submissions whose resources were created on the cluster",
	}, []string{"namespace"})
	SubmissionsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_submissions_failed_total",
		Help: "Total number of submissions that failed, grouped by pipeline stage",
	}, []string{"namespace", "stage"})

	// ServiceNameFallbacks counts driver service names that exceeded the DNS
	// label budget and were replaced with a clock-derived name.
	ServiceNameFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spark_launcher_service_name_fallbacks_total",
		Help: "Total number of driver service names derived from the launch time because the preferred name was too long",
	})

	// Resource creation metrics
	ResourcesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_resources_created_total",
		Help: "Total number of Kubernetes resources created for submissions",
	}, []string{"namespace", "kind"})
	ResourceConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_resource_conflicts_total",
		Help: "Total number of resource creations rejected because the name already existed",
	}, []string{"namespace", "kind"})

	// API endpoint metrics
	APIEndpointRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_api_endpoint_requests_total",
		Help: "Total number of API requests, grouped by endpoint",
	}, []string{"endpoint"})
	APIEndpointDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "spark_launcher_api_endpoint_duration_seconds",
		Help: "API request handling latency in seconds, grouped by endpoint",
	}, []string{"endpoint"})
	APIEndpointErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_api_endpoint_errors_total",
		Help: "Total number of API requests answered with an error status, grouped by endpoint and status code",
	}, []string{"endpoint", "code"})

	// Audit pipeline metrics
	AuditEventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_audit_events_emitted_total",
		Help: "Total number of audit events accepted for delivery, grouped by event type",
	}, []string{"type"})
	AuditEventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spark_launcher_audit_events_dropped_total",
		Help: "Total number of audit events dropped because the queue was full",
	})
	AuditSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_launcher_audit_sink_errors_total",
		Help: "Total number of audit sink write failures, grouped by sink and error class",
	}, []string{"sink", "reason"})
	AuditSinkConnected = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spark_launcher_audit_sink_connected",
		Help: "Whether an audit sink believes its backend is reachable (1) or not (0)",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(SubmissionsPrepared)
	prometheus.MustRegister(SubmissionsSubmitted)
	prometheus.MustRegister(SubmissionsFailed)
	prometheus.MustRegister(ServiceNameFallbacks)
	prometheus.MustRegister(ResourcesCreated)
	prometheus.MustRegister(ResourceConflicts)
	prometheus.MustRegister(APIEndpointRequests)
	prometheus.MustRegister(APIEndpointDuration)
	prometheus.MustRegister(APIEndpointErrors)
	prometheus.MustRegister(AuditEventsEmitted)
	prometheus.MustRegister(AuditEventsDropped)
	prometheus.MustRegister(AuditSinkErrors)
	prometheus.MustRegister(AuditSinkConnected)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the intake service.
type Metrics struct {
	ApplicationsCreated   prometheus.Counter
	ApplicationsSubmitted prometheus.Counter
	ApplicationsResumed   prometheus.Counter
	StepSaves             *prometheus.CounterVec
	ValidationFailures    *prometheus.CounterVec
	GateDenials           *prometheus.CounterVec
	DocumentUploads       *prometheus.CounterVec
	PaymentsCompleted     prometheus.Counter
	RequestDuration       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ApplicationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_applications_created_total",
			Help: "Total number of draft applications created",
		}),
		ApplicationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_applications_submitted_total",
			Help: "Total number of applications submitted",
		}),
		ApplicationsResumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_applications_resumed_total",
			Help: "Total number of drafts resumed with a valid code",
		}),
		StepSaves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_step_saves_total",
			Help: "Total number of draft step saves by completed step",
		}, []string{"step"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_validation_failures_total",
			Help: "Total number of rejected payloads by operation",
		}, []string{"operation"}),
		GateDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_gate_denials_total",
			Help: "Total number of gate evaluations that blocked progress",
		}, []string{"gate"}),
		DocumentUploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_document_uploads_total",
			Help: "Total number of document uploads by type",
		}, []string{"type"}),
		PaymentsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_payments_completed_total",
			Help: "Total number of completed payments",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

// PipelineMetrics records document and submission outcomes. It satisfies
// ports.PipelineObserver.
type PipelineMetrics struct {
	registry *prometheus.Registry
	service  string

	documentsTotal     *prometheus.CounterVec
	documentDuration   *prometheus.HistogramVec
	documentFailures   *prometheus.CounterVec
	oracleFallbacks    *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	requestsInFlight   prometheus.Gauge
}

func NewPipelineMetrics(service string, registry *prometheus.Registry) *PipelineMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_processed_total",
			Help:      "Documents processed by category and grading path.",
		},
		[]string{"service", "category", "graded_by"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "document_duration_seconds",
			Help:      "Document extraction, classification and grading duration.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "category"},
	)
	documentFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "document_failures_total",
			Help:      "Document failures by pipeline stage.",
		},
		[]string{"service", "stage"},
	)
	oracleFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "fallback_total",
			Help:      "Oracle calls that degraded to the deterministic path.",
		},
		[]string{"service", "operation"},
	)
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "submissions_total",
			Help:      "Finished submissions by final status.",
		},
		[]string{"service", "status"},
	)
	submissionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "submission_duration_seconds",
			Help:      "Submission processing duration by final status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	requestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "requests_in_flight",
			Help:      "Number of in-flight queued process requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(documentsTotal, documentDuration, documentFailures, oracleFallbacks, submissionsTotal, submissionDuration, requestsInFlight)

	return &PipelineMetrics{
		registry:           registry,
		service:            service,
		documentsTotal:     documentsTotal,
		documentDuration:   documentDuration,
		documentFailures:   documentFailures,
		oracleFallbacks:    oracleFallbacks,
		submissionsTotal:   submissionsTotal,
		submissionDuration: submissionDuration,
		requestsInFlight:   requestsInFlight,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) DocumentProcessed(category domain.Category, gradedBy domain.GradedBy, duration time.Duration) {
	graded := string(gradedBy)
	if graded == "" {
		graded = "none"
	}
	m.documentsTotal.WithLabelValues(m.service, string(category), graded).Inc()
	m.documentDuration.WithLabelValues(m.service, string(category)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) DocumentFailed(stage string) {
	m.documentFailures.WithLabelValues(m.service, stage).Inc()
}

func (m *PipelineMetrics) OracleFallback(operation string) {
	m.oracleFallbacks.WithLabelValues(m.service, operation).Inc()
}

func (m *PipelineMetrics) SubmissionFinished(status domain.SubmissionStatus, duration time.Duration) {
	m.submissionsTotal.WithLabelValues(m.service, string(status)).Inc()
	m.submissionDuration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) StartRequest() {
	m.requestsInFlight.Inc()
}

func (m *PipelineMetrics) FinishRequest() {
	m.requestsInFlight.Dec()
}

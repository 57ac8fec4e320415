package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

func TestPipelineMetricsRecordsOutcomes(t *testing.T) {
	m := NewPipelineMetrics("worker", nil)
	m.DocumentProcessed(domain.CategoryEssay, domain.GradedByFallback, 20*time.Millisecond)
	m.DocumentProcessed(domain.CategoryOther, "", time.Millisecond)
	m.DocumentFailed("extract")
	m.OracleFallback("score")
	m.SubmissionFinished(domain.StatusCompleted, time.Second)

	if got := testutil.ToFloat64(m.documentsTotal.WithLabelValues("worker", "essay", "fallback")); got != 1 {
		t.Fatalf("documents_processed_total{essay,fallback} = %v", got)
	}
	if got := testutil.ToFloat64(m.documentsTotal.WithLabelValues("worker", "other", "none")); got != 1 {
		t.Fatalf("documents_processed_total{other,none} = %v", got)
	}
	if got := testutil.ToFloat64(m.documentFailures.WithLabelValues("worker", "extract")); got != 1 {
		t.Fatalf("document_failures_total = %v", got)
	}
	if got := testutil.ToFloat64(m.oracleFallbacks.WithLabelValues("worker", "score")); got != 1 {
		t.Fatalf("fallback_total = %v", got)
	}
	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues("worker", "completed")); got != 1 {
		t.Fatalf("submissions_total = %v", got)
	}
}

func TestSharedRegistryServesBothSets(t *testing.T) {
	registry := prometheus.NewRegistry()
	httpMetrics := NewHTTPServerMetrics("api", registry)
	pipeline := NewPipelineMetrics("api", registry)
	pipeline.OracleFallback("classify")

	handler := httpMetrics.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/submissions/abc-123", nil))

	rec := httptest.NewRecorder()
	httpMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`scholar_http_requests_total{method="GET",path="/v1/submissions/{submission_id}",service="api",status="202"} 1`,
		`scholar_oracle_fallback_total{operation="classify",service="api"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/v1/submissions/":        "/v1/submissions/",
		"/v1/submissions/scan":    "/v1/submissions/scan",
		"/v1/submissions/process": "/v1/submissions/process",
		"/v1/submissions/xyz":     "/v1/submissions/{submission_id}",
		"/v1/reports/summary":     "/v1/reports/summary",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

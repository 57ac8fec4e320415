package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

const defaultApplicantLimit = 10

// TrafficOptions bounds request admission on the /v1 routes. Zero values
// disable the corresponding control.
type TrafficOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
}

type Router struct {
	batch     ports.BatchProcessor
	scheduler ports.ProcessScheduler
	reader    ports.SubmissionReader
	reports   ports.ReportService
	traffic   TrafficOptions
}

// NewRouter builds the API router. scheduler may be nil when no queue is
// configured; the scan endpoint then answers 503.
func NewRouter(
	batch ports.BatchProcessor,
	scheduler ports.ProcessScheduler,
	reader ports.SubmissionReader,
	reports ports.ReportService,
	traffic TrafficOptions,
) *Router {
	return &Router{
		batch:     batch,
		scheduler: scheduler,
		reader:    reader,
		reports:   reports,
		traffic:   traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", rt.healthz)

	r.Route("/v1", func(api chi.Router) {
		api.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
		})
		api.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.traffic.MaxInFlight, rt.traffic.QueueWait)
		})

		api.Route("/submissions", func(s chi.Router) {
			s.Get("/", rt.listSubmissions)
			s.Post("/scan", rt.scanSubmissions)
			s.Post("/process", rt.processSubmissions)
			s.Get("/{submission_id}", rt.getSubmission)
		})
		api.Route("/reports", func(rep chi.Router) {
			rep.Get("/summary", rt.summaryReport)
			rep.Get("/categories", rt.categoryReport)
			rep.Get("/applicants", rt.applicantReport)
		})
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type processRequest struct {
	FolderRef string `json:"folder_ref"`
	Reprocess bool   `json:"reprocess"`
}

// decodeProcessRequest accepts an empty body as "all folders, no reprocess".
func decodeProcessRequest(r *http.Request) (processRequest, error) {
	var req processRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	req.FolderRef = strings.TrimSpace(req.FolderRef)
	return req, nil
}

func (rt *Router) scanSubmissions(w http.ResponseWriter, r *http.Request) {
	if rt.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "message queue is not configured")
		return
	}
	req, err := decodeProcessRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.FolderRef != "" {
		if err := rt.scheduler.ScheduleFolder(r.Context(), req.FolderRef, req.Reprocess); err != nil {
			rt.writeDomainError(w, r, "schedule folder", err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]int{"scheduled": 1})
		return
	}

	scheduled, err := rt.scheduler.ScheduleAll(r.Context(), req.Reprocess)
	if err != nil {
		rt.writeDomainError(w, r, "schedule all", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"scheduled": scheduled})
}

func (rt *Router) processSubmissions(w http.ResponseWriter, r *http.Request) {
	req, err := decodeProcessRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.FolderRef != "" {
		result, err := rt.batch.ProcessFolder(r.Context(), req.FolderRef, req.Reprocess)
		if err != nil {
			rt.writeDomainError(w, r, "process folder", err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	result, err := rt.batch.ProcessAll(r.Context(), req.Reprocess)
	if err != nil {
		rt.writeDomainError(w, r, "process all", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listSubmissions(w http.ResponseWriter, r *http.Request) {
	status := domain.SubmissionStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	subs, err := rt.reader.ListSubmissions(r.Context(), status)
	if err != nil {
		rt.writeDomainError(w, r, "list submissions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs, "count": len(subs)})
}

func (rt *Router) getSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submission_id")
	summary, err := rt.reader.GetSummary(r.Context(), id)
	if err != nil {
		rt.writeDomainError(w, r, "get submission", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) summaryReport(w http.ResponseWriter, r *http.Request) {
	report, err := rt.reports.Summary(r.Context())
	if err != nil {
		rt.writeDomainError(w, r, "summary report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) categoryReport(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.reports.Categories(r.Context())
	if err != nil {
		rt.writeDomainError(w, r, "category report", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": stats})
}

func (rt *Router) applicantReport(w http.ResponseWriter, r *http.Request) {
	limit := defaultApplicantLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	ranking, err := rt.reports.TopApplicants(r.Context(), limit)
	if err != nil {
		rt.writeDomainError(w, r, "applicant report", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applicants": ranking})
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed", "op", op, "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

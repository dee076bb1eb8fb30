// Package httpadapter exposes the answer pipeline and reindex control
// over HTTP.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
	"github.com/kirillkom/docs-assistant/internal/core/ports"
)

// SourcesRecorder receives the cited source count of each successful
// answer. Implemented by the metrics layer; optional.
type SourcesRecorder interface {
	RecordAnswerSources(count int)
}

type Router struct {
	answerer  ports.QueryAnswerer
	scheduler ports.ReindexScheduler
	jobs      ports.JobReader
	linkGraph ports.LinkGraph
	validator *OpenAPIValidator
	sources   SourcesRecorder
}

func NewRouter(
	answerer ports.QueryAnswerer,
	scheduler ports.ReindexScheduler,
	jobs ports.JobReader,
	linkGraph ports.LinkGraph,
	validator *OpenAPIValidator,
	sources SourcesRecorder,
) *Router {
	return &Router{
		answerer:  answerer,
		scheduler: scheduler,
		jobs:      jobs,
		linkGraph: linkGraph,
		validator: validator,
		sources:   sources,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/openapi.yaml", serveOpenAPISpec)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/reindex", rt.scheduleReindex)
	mux.HandleFunc("/v1/jobs/", rt.getJobByID)
	mux.HandleFunc("/v1/pages/related", rt.relatedPages)

	var handler http.Handler = mux
	if rt.validator != nil {
		handler = rt.validator.Middleware(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Channel == "" {
		req.Channel = "http"
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, domain.FailedAnswer(domain.ErrorQueryProcessing, req))
		return
	}

	result := rt.answerer.HandleQuery(r.Context(), req)
	if result.Error == "" && rt.sources != nil {
		rt.sources.RecordAnswerSources(len(result.Sources))
	}
	// Pipeline failures are part of the envelope, not the transport.
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) scheduleReindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		ForceFull bool `json:"force_full"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	job, err := rt.scheduler.Schedule(r.Context(), req.ForceFull)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	job, err := rt.jobs.GetJobByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) relatedPages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	pageURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if pageURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url parameter is required"})
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	pages, err := rt.linkGraph.RelatedPages(r.Context(), pageURL, limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if pages == nil {
		pages = []domain.RelatedPage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": pageURL, "pages": pages})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

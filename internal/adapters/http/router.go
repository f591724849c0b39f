package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/core/ports"
	"github.com/launchdeck/launchdeck/internal/core/usecase"
	"github.com/launchdeck/launchdeck/internal/observability/metrics"
)

// artifactStore is the slice of the storage layer the artifact download
// handler needs: signature verification plus raw object access.
type artifactStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	VerifySignature(key string, expiresAt int64, sig string) error
}

type Router struct {
	modules      ports.ModuleRepository
	steps        ports.StepRepository
	progression  ports.ModuleProgression
	documents    *usecase.DocumentService
	orchestrator ports.DocumentWorkflow
	queue        ports.GenerationQueue
	artifacts    artifactStore

	defaultFormat domain.DocumentFormat
	rateLimitRPS  int
	rateBurst     int
	httpMetrics   *metrics.HTTPMetrics
}

type RouterConfig struct {
	DefaultFormat     domain.DocumentFormat
	APIRateLimitRPS   int
	APIRateLimitBurst int
	Metrics           *metrics.HTTPMetrics
}

func NewRouter(
	modules ports.ModuleRepository,
	steps ports.StepRepository,
	progression ports.ModuleProgression,
	documents *usecase.DocumentService,
	orchestrator ports.DocumentWorkflow,
	queue ports.GenerationQueue,
	artifacts artifactStore,
	cfg RouterConfig,
) *Router {
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = domain.FormatPDF
	}
	return &Router{
		modules:       modules,
		steps:         steps,
		progression:   progression,
		documents:     documents,
		orchestrator:  orchestrator,
		queue:         queue,
		artifacts:     artifacts,
		defaultFormat: cfg.DefaultFormat,
		rateLimitRPS:  cfg.APIRateLimitRPS,
		rateBurst:     cfg.APIRateLimitBurst,
		httpMetrics:   cfg.Metrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/projects/{projectID}/modules/{moduleType}", rt.getOrCreateModule)
	mux.HandleFunc("GET /v1/projects/{projectID}/modules/{moduleType}/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/modules/{moduleID}", rt.getModule)
	mux.HandleFunc("DELETE /v1/modules/{moduleID}", rt.deleteModule)
	mux.HandleFunc("POST /v1/modules/{moduleID}/advance", rt.advanceModule)
	mux.HandleFunc("POST /v1/modules/{moduleID}/documents", rt.generateDocument)
	mux.HandleFunc("POST /v1/steps/{stepID}/response", rt.saveStepResponse)
	mux.HandleFunc("PATCH /v1/steps/{stepID}/status", rt.updateStepStatus)
	mux.HandleFunc("GET /v1/documents/{documentID}/url", rt.documentURL)
	mux.HandleFunc("GET /v1/artifacts/{key...}", rt.downloadArtifact)
	if rt.httpMetrics != nil {
		mux.Handle("GET /metrics", rt.httpMetrics.Handler())
	}

	var handler http.Handler = mux
	if rt.httpMetrics != nil {
		handler = metricsMiddleware(handler, rt.httpMetrics)
	}
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) getOrCreateModule(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	moduleType := domain.ModuleType(r.PathValue("moduleType"))

	var req struct {
		Actor string `json:"actor"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	module, err := rt.modules.GetOrCreate(r.Context(), projectID, moduleType, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	module, err = rt.progression.Enter(r.Context(), module.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, module)
}

func (rt *Router) getModule(w http.ResponseWriter, r *http.Request) {
	module, err := rt.modules.GetModule(r.Context(), r.PathValue("moduleID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, module)
}

func (rt *Router) deleteModule(w http.ResponseWriter, r *http.Request) {
	if err := rt.modules.DeleteModule(r.Context(), r.PathValue("moduleID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) advanceModule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		Actor     string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	moduleID := r.PathValue("moduleID")
	var result domain.AdvanceResult
	var err error
	switch req.Direction {
	case "next":
		result, err = rt.progression.Next(r.Context(), moduleID, req.Actor)
	case "previous":
		result, err = rt.progression.Previous(r.Context(), moduleID)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "direction must be next or previous"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) saveStepResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		Author  string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	response, err := rt.steps.SaveResponse(r.Context(), r.PathValue("stepID"), req.Content, req.Author)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

func (rt *Router) updateStepStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		Actor  string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	status := domain.StepStatus(req.Status)
	switch status {
	case domain.StepNotStarted, domain.StepInProgress, domain.StepCompleted:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid step status"})
		return
	}

	if err := rt.steps.UpdateStepStatus(r.Context(), r.PathValue("stepID"), status, req.Actor); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) generateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format       string         `json:"format"`
		Name         string         `json:"name"`
		Enrich       bool           `json:"enrich"`
		Instructions string         `json:"instructions"`
		Async        bool           `json:"async"`
		Actor        string         `json:"actor"`
		ProjectData  map[string]any `json:"project_data"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	format := domain.DocumentFormat(req.Format)
	if format == "" {
		format = rt.defaultFormat
	}
	if !domain.ValidFormat(format) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported format"})
		return
	}

	moduleID := r.PathValue("moduleID")

	if req.Async {
		job := domain.GenerationJob{
			ModuleID:     moduleID,
			Format:       format,
			Enrich:       req.Enrich,
			Instructions: req.Instructions,
			RequestedBy:  req.Actor,
		}
		if err := rt.queue.PublishGenerationRequested(r.Context(), job); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "module_id": moduleID})
		return
	}

	module, err := rt.modules.GetModule(r.Context(), moduleID)
	if err != nil {
		writeError(w, err)
		return
	}

	opts := domain.WorkflowOptions{
		ProjectID:  module.ProjectID,
		ModuleType: module.Type,
		Generation: domain.GenerationOptions{Format: format, Name: req.Name},
	}
	if req.Enrich {
		opts.Enrichment = &domain.EnrichmentOptions{Instructions: req.Instructions}
	}

	result := rt.orchestrator.Execute(r.Context(), module.Steps, req.ProjectData, opts)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.documents.Documents(
		r.Context(),
		r.PathValue("projectID"),
		domain.ModuleType(r.PathValue("moduleType")),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (rt *Router) documentURL(w http.ResponseWriter, r *http.Request) {
	url, err := rt.documents.DocumentURL(r.Context(), r.PathValue("documentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (rt *Router) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	expiresAt, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid exp"})
		return
	}
	sig := r.URL.Query().Get("sig")

	if err := rt.artifacts.VerifySignature(key, expiresAt, sig); err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
		return
	}

	reader, err := rt.artifacts.Open(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artifact not found"})
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentTypeForKey(key))
	if _, err := io.Copy(w, reader); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return
	}
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(key, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(key, ".xlsx"):
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case strings.HasSuffix(key, ".md"):
		return "text/markdown; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

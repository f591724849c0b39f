package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/core/usecase"
)

type moduleStoreStub struct {
	module *domain.Module
}

func (s *moduleStoreStub) GetModule(_ context.Context, id string) (*domain.Module, error) {
	if s.module == nil || s.module.ID != id {
		return nil, domain.WrapError(domain.ErrNotFound, "get module", errors.New(id))
	}
	copyModule := *s.module
	copyModule.Steps = append([]domain.ModuleStep(nil), s.module.Steps...)
	return &copyModule, nil
}

func (s *moduleStoreStub) GetModuleByType(context.Context, string, domain.ModuleType) (*domain.Module, error) {
	return s.module, nil
}

func (s *moduleStoreStub) GetOrCreate(context.Context, string, domain.ModuleType, string) (*domain.Module, error) {
	return s.module, nil
}

func (s *moduleStoreStub) UpdateModule(_ context.Context, id string, patch domain.ModulePatch) error {
	if s.module == nil || s.module.ID != id {
		return domain.WrapError(domain.ErrNotFound, "update module", errors.New(id))
	}
	if patch.Status != nil {
		s.module.Status = *patch.Status
	}
	if patch.ClearCurrent {
		s.module.CurrentStepID = nil
	} else if patch.CurrentStepID != nil {
		next := *patch.CurrentStepID
		s.module.CurrentStepID = &next
	}
	return nil
}

func (s *moduleStoreStub) UpdateModuleStatus(ctx context.Context, id string, status domain.ModuleStatus) error {
	return s.UpdateModule(ctx, id, domain.ModulePatch{Status: &status})
}

func (s *moduleStoreStub) DeleteModule(_ context.Context, id string) error {
	if s.module == nil || s.module.ID != id {
		return domain.WrapError(domain.ErrNotFound, "delete module", errors.New(id))
	}
	s.module = nil
	return nil
}

type stepStoreStub struct {
	modules  *moduleStoreStub
	response *domain.StepResponse
}

func (s *stepStoreStub) ListSteps(context.Context, string) ([]domain.ModuleStep, error) {
	return s.modules.module.Steps, nil
}

func (s *stepStoreStub) GetStep(context.Context, string) (*domain.ModuleStep, error) {
	return nil, nil
}

func (s *stepStoreStub) CreateStep(context.Context, *domain.ModuleStep) error { return nil }

func (s *stepStoreStub) UpdateStepStatus(_ context.Context, stepID string, status domain.StepStatus, _ string) error {
	for i := range s.modules.module.Steps {
		if s.modules.module.Steps[i].ID == stepID {
			s.modules.module.Steps[i].Status = status
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "update step status", errors.New(stepID))
}

func (s *stepStoreStub) SaveResponse(_ context.Context, stepID, content, author string) (*domain.StepResponse, error) {
	s.response = &domain.StepResponse{ID: "r-1", StepID: stepID, Content: content, Version: 1, IsLatest: true, CreatedBy: author}
	return s.response, nil
}

func (s *stepStoreStub) DeleteStep(context.Context, string) error { return nil }

type docStoreStub struct {
	docs map[string]*domain.Document
}

func (s *docStoreStub) CreateDocument(_ context.Context, doc *domain.Document) error {
	if s.docs == nil {
		s.docs = make(map[string]*domain.Document)
	}
	doc.Version = len(s.docs) + 1
	copyDoc := *doc
	s.docs[doc.ID] = &copyDoc
	return nil
}

func (s *docStoreStub) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (s *docStoreStub) ListDocuments(context.Context, string, domain.ModuleType) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (s *docStoreStub) MarkCompleted(_ context.Context, id, storagePath string, templateVersion int) error {
	doc := s.docs[id]
	doc.Status = domain.DocumentCompleted
	doc.StoragePath = storagePath
	doc.TemplateVersion = templateVersion
	return nil
}

func (s *docStoreStub) MarkFailed(_ context.Context, id, errMessage string) error {
	doc := s.docs[id]
	doc.Status = domain.DocumentFailed
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Metadata["error"] = errMessage
	return nil
}

type templateStoreStub struct{}

func (templateStoreStub) LatestTemplate(context.Context, domain.ModuleType) (*domain.DocumentTemplate, error) {
	return &domain.DocumentTemplate{ID: "tpl-1", Version: 1, StoragePath: "templates/t.md"}, nil
}

type objectStoreStub struct {
	objects map[string][]byte
}

func (s *objectStoreStub) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = raw
	return nil
}

func (s *objectStoreStub) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *objectStoreStub) SignedURL(key string, _ time.Duration) (string, error) {
	return "http://localhost:8080/v1/artifacts/" + key + "?exp=1&sig=x", nil
}

type engineStub struct{}

func (engineStub) ProcessTemplate(_ context.Context, templateText string, data map[string]any) (string, error) {
	var sb strings.Builder
	sb.WriteString(templateText)
	for _, v := range data {
		fmt.Fprintf(&sb, "\n%v", v)
	}
	return sb.String(), nil
}

func (engineStub) Convert(_ context.Context, renderedText string, _ domain.DocumentFormat) ([]byte, error) {
	return []byte(renderedText), nil
}

type queueStub struct {
	published []domain.GenerationJob
	err       error
}

func (q *queueStub) PublishGenerationRequested(_ context.Context, job domain.GenerationJob) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, job)
	return nil
}

func (q *queueStub) SubscribeGenerationRequested(context.Context, func(context.Context, domain.GenerationJob) error) error {
	return nil
}

type artifactsStub struct {
	store     *objectStoreStub
	verifyErr error
}

func (a *artifactsStub) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return a.store.Open(ctx, key)
}

func (a *artifactsStub) VerifySignature(string, int64, string) error { return a.verifyErr }

type routerFixture struct {
	handler   http.Handler
	modules   *moduleStoreStub
	steps     *stepStoreStub
	queue     *queueStub
	artifacts *artifactsStub
	objects   *objectStoreStub
}

func newRouterFixture(cfg RouterConfig) *routerFixture {
	current := "s-1"
	modules := &moduleStoreStub{module: &domain.Module{
		ID:            "m-1",
		ProjectID:     "p-1",
		Type:          domain.ModuleVisionProblem,
		Status:        domain.ModuleInProgress,
		CurrentStepID: &current,
		Steps: []domain.ModuleStep{
			{ID: "s-1", ModuleID: "m-1", StepType: "vision", OrderIndex: 0, Status: domain.StepInProgress,
				Responses: []domain.StepResponse{{ID: "r-1", Version: 1, Content: "A", IsLatest: true}}},
			{ID: "s-2", ModuleID: "m-1", StepType: "problem", OrderIndex: 1, Status: domain.StepNotStarted},
		},
	}}
	steps := &stepStoreStub{modules: modules}
	docs := &docStoreStub{docs: map[string]*domain.Document{}}
	objects := &objectStoreStub{objects: map[string][]byte{"templates/t.md": []byte("# Plan")}}
	queue := &queueStub{}
	artifacts := &artifactsStub{store: objects}

	documents := usecase.NewDocumentService(docs, templateStoreStub{}, objects, engineStub{}, "documents", time.Hour)
	progression := usecase.NewProgression(modules, steps)
	orchestrator := usecase.NewOrchestrator(nil, usecase.NewDocumentGenerator(documents))

	router := NewRouter(modules, steps, progression, documents, orchestrator, queue, artifacts, cfg)
	return &routerFixture{
		handler:   router.Handler(),
		modules:   modules,
		steps:     steps,
		queue:     queue,
		artifacts: artifacts,
		objects:   objects,
	}
}

func doRequest(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthzSetsRequestID(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodGet, "/healthz", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}
}

func TestGetOrCreateModuleEntersCurrentStep(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})
	fixture.modules.module.CurrentStepID = nil

	resp := doRequest(fixture.handler, http.MethodPost, "/v1/projects/p-1/modules/vision-problem", `{"actor":"alice"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var module domain.Module
	if err := json.Unmarshal(resp.Body.Bytes(), &module); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if module.CurrentStepID == nil || *module.CurrentStepID != "s-1" {
		t.Fatalf("cursor = %v, want s-1", module.CurrentStepID)
	}
}

func TestGetModuleNotFoundMapsTo404(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodGet, "/v1/modules/missing", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}

func TestAdvanceRejectsUnknownDirection(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodPost, "/v1/modules/m-1/advance", `{"direction":"sideways"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestAdvanceNextMovesCursor(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodPost, "/v1/modules/m-1/advance", `{"direction":"next","actor":"alice"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var result domain.AdvanceResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Completed {
		t.Fatalf("module completed too early")
	}
	if *result.Module.CurrentStepID != "s-2" {
		t.Fatalf("cursor = %s, want s-2", *result.Module.CurrentStepID)
	}
}

func TestSaveStepResponseRequiresContent(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodPost, "/v1/steps/s-1/response", `{"content":"   "}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestSaveStepResponseCreatesVersion(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodPost, "/v1/steps/s-1/response", `{"content":"our vision","author":"alice"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}
	if fixture.steps.response == nil || fixture.steps.response.Content != "our vision" {
		t.Fatalf("response not saved: %+v", fixture.steps.response)
	}
}

func TestUpdateStepStatusRejectsUnknownStatus(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodPatch, "/v1/steps/s-1/status", `{"status":"paused"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestGenerateDocumentRejectsUnsupportedFormat(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodPost, "/v1/modules/m-1/documents", `{"format":"csv"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestGenerateDocumentAsyncQueuesJob(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodPost, "/v1/modules/m-1/documents", `{"async":true,"format":"md","enrich":true,"actor":"alice"}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}
	if len(fixture.queue.published) != 1 {
		t.Fatalf("expected 1 queued job, got %d", len(fixture.queue.published))
	}
	job := fixture.queue.published[0]
	if job.ModuleID != "m-1" || job.Format != domain.FormatMarkdown || !job.Enrich {
		t.Fatalf("job = %+v", job)
	}
}

func TestGenerateDocumentSyncRunsWorkflow(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})

	resp := doRequest(fixture.handler, http.MethodPost, "/v1/modules/m-1/documents", `{"format":"md","project_data":{"industry":"fintech"}}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var result domain.WorkflowResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != domain.DocumentCompleted {
		t.Fatalf("result = %+v", result)
	}

	key := fmt.Sprintf("documents/p-1/vision-problem/%s.md", result.DocumentID)
	artifact, ok := fixture.objects.objects[key]
	if !ok {
		t.Fatalf("artifact not stored at %s", key)
	}
	if !strings.Contains(string(artifact), "A") || !strings.Contains(string(artifact), "fintech") {
		t.Fatalf("artifact = %q", artifact)
	}
}

func TestDownloadArtifactRejectsBadSignature(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})
	fixture.artifacts.verifyErr = errors.New("invalid signature")

	resp := doRequest(fixture.handler, http.MethodGet, "/v1/artifacts/documents/p-1/d-1.md?exp=1&sig=bad", "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
}

func TestDownloadArtifactServesContent(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{})
	fixture.objects.objects["documents/p-1/d-1.md"] = []byte("# Plan")

	resp := doRequest(fixture.handler, http.MethodGet, "/v1/artifacts/documents/p-1/d-1.md?exp=9999999999&sig=x", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Type"); got != "text/markdown; charset=utf-8" {
		t.Fatalf("content type = %s", got)
	}
	if resp.Body.String() != "# Plan" {
		t.Fatalf("body = %q", resp.Body.String())
	}
}

func TestRateLimitReturns429(t *testing.T) {
	fixture := newRouterFixture(RouterConfig{APIRateLimitRPS: 1, APIRateLimitBurst: 1})

	first := doRequest(fixture.handler, http.MethodGet, "/healthz", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := doRequest(fixture.handler, http.MethodGet, "/healthz", "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header missing")
	}
}

func TestRouteLabelCollapsesResourcePaths(t *testing.T) {
	cases := map[string]string{
		"/v1/modules/m-1/advance": "/v1/modules",
		"/v1/projects/p-1":        "/v1/projects",
		"/healthz":                "/healthz",
		"/":                       "/",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

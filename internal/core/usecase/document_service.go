package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/core/ports"
)

const DefaultSignedURLTTL = 3600 * time.Second

// GenerateRequest carries the flattened template data and output options for
// one document.
type GenerateRequest struct {
	ProjectID  string
	ModuleType domain.ModuleType
	Data       map[string]any
	Format     domain.DocumentFormat
	Name       string
}

// DocumentService owns the document record lifecycle: it creates the row in
// processing status, runs the render/convert/upload pipeline and always
// settles the row in completed or failed.
type DocumentService struct {
	documents     ports.DocumentRepository
	templates     ports.TemplateRepository
	storage       ports.ObjectStorage
	engine        ports.TemplateEngine
	documentsRoot string
	urlTTL        time.Duration
}

func NewDocumentService(
	documents ports.DocumentRepository,
	templates ports.TemplateRepository,
	storage ports.ObjectStorage,
	engine ports.TemplateEngine,
	documentsRoot string,
	urlTTL time.Duration,
) *DocumentService {
	if documentsRoot == "" {
		documentsRoot = "documents"
	}
	if urlTTL <= 0 {
		urlTTL = DefaultSignedURLTTL
	}
	return &DocumentService{
		documents:     documents,
		templates:     templates,
		storage:       storage,
		engine:        engine,
		documentsRoot: documentsRoot,
		urlTTL:        urlTTL,
	}
}

// GenerateDocument runs the full pipeline. The returned document is non-nil
// as soon as the record exists, even when the pipeline later fails.
func (s *DocumentService) GenerateDocument(ctx context.Context, req GenerateRequest) (*domain.Document, error) {
	if !domain.ValidFormat(req.Format) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate document", fmt.Errorf("unsupported format %q", req.Format))
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s", req.ModuleType, time.Now().UTC().Format("20060102-150405"))
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         uuid.NewString(),
		ProjectID:  req.ProjectID,
		ModuleType: req.ModuleType,
		Name:       name,
		Format:     req.Format,
		Status:     domain.DocumentProcessing,
		Metadata:   map[string]any{"inputs": req.Data},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	templateVersion, storagePath, err := s.runPipeline(ctx, doc, req)
	if err != nil {
		if failErr := s.documents.MarkFailed(ctx, doc.ID, err.Error()); failErr != nil {
			slog.Error("mark document failed", "document_id", doc.ID, "error", failErr)
		}
		doc.Status = domain.DocumentFailed
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		doc.Metadata["error"] = err.Error()
		return doc, err
	}

	if err := s.documents.MarkCompleted(ctx, doc.ID, storagePath, templateVersion); err != nil {
		return doc, err
	}
	doc.Status = domain.DocumentCompleted
	doc.StoragePath = storagePath
	doc.TemplateVersion = templateVersion
	return doc, nil
}

func (s *DocumentService) runPipeline(ctx context.Context, doc *domain.Document, req GenerateRequest) (int, string, error) {
	tpl, err := s.templates.LatestTemplate(ctx, req.ModuleType)
	if err != nil {
		return 0, "", err
	}

	templateText, err := s.readTemplate(ctx, tpl.StoragePath)
	if err != nil {
		return 0, "", err
	}

	rendered, err := s.engine.ProcessTemplate(ctx, templateText, req.Data)
	if err != nil {
		return 0, "", domain.WrapError(domain.ErrGeneration, "render template", err)
	}

	artifact, err := s.engine.Convert(ctx, rendered, req.Format)
	if err != nil {
		return 0, "", domain.WrapError(domain.ErrGeneration, "convert document", err)
	}

	key := fmt.Sprintf("%s/%s/%s/%s.%s", s.documentsRoot, req.ProjectID, req.ModuleType, doc.ID, req.Format)
	if err := s.storage.Save(ctx, key, bytes.NewReader(artifact)); err != nil {
		return 0, "", domain.WrapError(domain.ErrGeneration, "upload artifact", err)
	}

	return tpl.Version, key, nil
}

func (s *DocumentService) readTemplate(ctx context.Context, path string) (string, error) {
	reader, err := s.storage.Open(ctx, path)
	if err != nil {
		return "", domain.WrapError(domain.ErrGeneration, "download template", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrGeneration, "read template", err)
	}
	return string(raw), nil
}

// Documents lists generated documents for the pair, most recent first.
func (s *DocumentService) Documents(ctx context.Context, projectID string, moduleType domain.ModuleType) ([]domain.Document, error) {
	return s.documents.ListDocuments(ctx, projectID, moduleType)
}

// DocumentURL resolves a time-limited signed URL. Documents without a stored
// artifact, such as failed generations, behave as not found.
func (s *DocumentService) DocumentURL(ctx context.Context, documentID string) (string, error) {
	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.StoragePath == "" {
		return "", domain.WrapError(domain.ErrNotFound, "document url", fmt.Errorf("document %s has no stored artifact", documentID))
	}
	url, err := s.storage.SignedURL(doc.StoragePath, s.urlTTL)
	if err != nil {
		return "", domain.WrapError(domain.ErrStorage, "sign document url", err)
	}
	return url, nil
}

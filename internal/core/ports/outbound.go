package ports

import (
	"context"
	"io"
	"time"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

// ModuleRepository persists modules and orchestrates step-set creation from
// the catalog.
type ModuleRepository interface {
	GetModule(ctx context.Context, id string) (*domain.Module, error)
	// GetModuleByType returns (nil, nil) when no module exists for the pair;
	// absence is a normal state, not an error.
	GetModuleByType(ctx context.Context, projectID string, moduleType domain.ModuleType) (*domain.Module, error)
	GetOrCreate(ctx context.Context, projectID string, moduleType domain.ModuleType, actor string) (*domain.Module, error)
	UpdateModule(ctx context.Context, id string, patch domain.ModulePatch) error
	UpdateModuleStatus(ctx context.Context, id string, status domain.ModuleStatus) error
	DeleteModule(ctx context.Context, id string) error
}

// StepRepository persists steps and their versioned responses.
type StepRepository interface {
	ListSteps(ctx context.Context, moduleID string) ([]domain.ModuleStep, error)
	GetStep(ctx context.Context, stepID string) (*domain.ModuleStep, error)
	CreateStep(ctx context.Context, step *domain.ModuleStep) error
	UpdateStepStatus(ctx context.Context, stepID string, status domain.StepStatus, actor string) error
	SaveResponse(ctx context.Context, stepID, content, author string) (*domain.StepResponse, error)
	DeleteStep(ctx context.Context, stepID string) error
}

// DocumentRepository persists generated document records.
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, projectID string, moduleType domain.ModuleType) ([]domain.Document, error)
	MarkCompleted(ctx context.Context, id, storagePath string, templateVersion int) error
	MarkFailed(ctx context.Context, id, errMessage string) error
}

// TemplateRepository reads versioned document templates.
type TemplateRepository interface {
	// LatestTemplate returns the highest-version template for the module type.
	LatestTemplate(ctx context.Context, moduleType domain.ModuleType) (*domain.DocumentTemplate, error)
}

// ObjectStorage stores template sources and generated artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// SignedURL returns a time-limited URL for a stored artifact.
	SignedURL(key string, expiry time.Duration) (string, error)
}

// TemplateEngine renders templates and converts the rendered text into the
// requested output format. Treated as opaque, potentially slow and failing.
type TemplateEngine interface {
	ProcessTemplate(ctx context.Context, templateText string, data map[string]any) (string, error)
	Convert(ctx context.Context, renderedText string, format domain.DocumentFormat) ([]byte, error)
}

// ContextEnricher augments a source list via an external AI collaborator.
// Failures propagate as errors, never silently absorbed.
type ContextEnricher interface {
	Enrich(ctx context.Context, sources []domain.Source, instructions string) ([]domain.Source, error)
}

// GenerationQueue publishes/consumes asynchronous generation jobs.
type GenerationQueue interface {
	PublishGenerationRequested(ctx context.Context, job domain.GenerationJob) error
	SubscribeGenerationRequested(ctx context.Context, handler func(context.Context, domain.GenerationJob) error) error
}

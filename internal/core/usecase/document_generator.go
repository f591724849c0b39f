package usecase

import (
	"context"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

// documentPipeline is the slice of DocumentService the generator depends on.
type documentPipeline interface {
	GenerateDocument(ctx context.Context, req GenerateRequest) (*domain.Document, error)
	DocumentURL(ctx context.Context, documentID string) (string, error)
}

// DocumentGenerator flattens a generation context and delegates to the
// document pipeline. Every failure is converted into a structured result;
// this boundary never returns a Go error.
type DocumentGenerator struct {
	pipeline documentPipeline
}

func NewDocumentGenerator(pipeline documentPipeline) *DocumentGenerator {
	return &DocumentGenerator{pipeline: pipeline}
}

func (g *DocumentGenerator) Generate(
	ctx context.Context,
	genCtx domain.GenerationContext,
	projectID string,
	moduleType domain.ModuleType,
	opts domain.GenerationOptions,
) domain.GenerationResult {
	format := opts.Format
	if format == "" {
		format = domain.FormatPDF
	}

	doc, err := g.pipeline.GenerateDocument(ctx, GenerateRequest{
		ProjectID:  projectID,
		ModuleType: moduleType,
		Data:       genCtx.Flatten(),
		Format:     format,
		Name:       opts.Name,
	})
	if err != nil {
		result := domain.GenerationResult{Status: domain.DocumentFailed, Error: err.Error()}
		if doc != nil {
			result.DocumentID = doc.ID
		}
		return result
	}

	url, err := g.pipeline.DocumentURL(ctx, doc.ID)
	if err != nil {
		return domain.GenerationResult{DocumentID: doc.ID, Status: domain.DocumentFailed, Error: err.Error()}
	}

	return domain.GenerationResult{
		DocumentID: doc.ID,
		Status:     domain.DocumentCompleted,
		URL:        url,
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

type enricherFake struct {
	extra []domain.Source
	err   error
	seen  []domain.Source
}

func (f *enricherFake) Enrich(_ context.Context, sources []domain.Source, _ string) ([]domain.Source, error) {
	f.seen = sources
	if f.err != nil {
		return nil, f.err
	}
	return f.extra, nil
}

func TestContextBuilderUsesOnlyLatestResponses(t *testing.T) {
	builder := NewContextBuilder(nil)
	builder.AddStepResponses([]domain.ModuleStep{
		{
			ID:       "s-1",
			StepType: "vision",
			Responses: []domain.StepResponse{
				{Version: 1, Content: "draft"},
				{Version: 2, Content: "final", IsLatest: true},
			},
		},
		{ID: "s-2", StepType: "problem"},
	})

	genCtx := builder.Context()
	if len(genCtx.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(genCtx.Sources))
	}
	src := genCtx.Sources[0]
	if src.Content != "final" {
		t.Fatalf("content = %v, want the latest response", src.Content)
	}
	if src.Metadata["step_type"] != "vision" || src.Metadata["version"] != 2 {
		t.Fatalf("metadata = %#v", src.Metadata)
	}
}

func TestContextBuilderEnrichAppendsSources(t *testing.T) {
	enricher := &enricherFake{
		extra: []domain.Source{{Type: domain.SourceMarketResearch, Content: map[string]any{"tam": "2B"}}},
	}
	builder := NewContextBuilder(enricher)
	builder.AddProjectData(map[string]any{"industry": "fintech"})

	if err := builder.Enrich(context.Background(), domain.EnrichmentOptions{}); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	genCtx := builder.Context()
	if !genCtx.Enriched {
		t.Fatalf("context not marked enriched")
	}
	if len(genCtx.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(genCtx.Sources))
	}
	if len(enricher.seen) != 1 {
		t.Fatalf("enricher saw %d sources, want the accumulated context", len(enricher.seen))
	}
}

func TestContextBuilderEnrichFailureLeavesContextUntouched(t *testing.T) {
	builder := NewContextBuilder(&enricherFake{err: errors.New("model unavailable")})
	builder.AddProjectData(map[string]any{"industry": "fintech"})

	err := builder.Enrich(context.Background(), domain.EnrichmentOptions{})
	if !domain.IsKind(err, domain.ErrEnrichment) {
		t.Fatalf("expected enrichment error, got %v", err)
	}

	genCtx := builder.Context()
	if genCtx.Enriched {
		t.Fatalf("failed enrichment must not mark the context enriched")
	}
	if len(genCtx.Sources) != 1 {
		t.Fatalf("sources mutated on failure: %d", len(genCtx.Sources))
	}
}

func TestContextBuilderEnrichWithoutEnricher(t *testing.T) {
	builder := NewContextBuilder(nil)
	err := builder.Enrich(context.Background(), domain.EnrichmentOptions{})
	if !domain.IsKind(err, domain.ErrEnrichment) {
		t.Fatalf("expected enrichment error, got %v", err)
	}
}

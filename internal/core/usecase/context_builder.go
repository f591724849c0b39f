package usecase

import (
	"context"
	"errors"

	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/core/ports"
)

// ContextBuilder accumulates generation sources in order. It is not safe for
// concurrent use; one builder serves one workflow run.
type ContextBuilder struct {
	enricher ports.ContextEnricher
	built    domain.GenerationContext
}

func NewContextBuilder(enricher ports.ContextEnricher) *ContextBuilder {
	return &ContextBuilder{enricher: enricher}
}

// AddStepResponses appends one module_response source per step, carrying only
// the response flagged latest. Steps without responses contribute nothing.
func (b *ContextBuilder) AddStepResponses(steps []domain.ModuleStep) {
	for i := range steps {
		latest := steps[i].LatestResponse()
		if latest == nil {
			continue
		}
		b.built.Sources = append(b.built.Sources, domain.Source{
			Type:    domain.SourceModuleResponse,
			Content: latest.Content,
			Metadata: map[string]any{
				"step_id":   steps[i].ID,
				"step_type": steps[i].StepType,
				"version":   latest.Version,
			},
		})
	}
}

func (b *ContextBuilder) AddProjectData(data map[string]any) {
	if len(data) == 0 {
		return
	}
	b.built.Sources = append(b.built.Sources, domain.Source{
		Type:    domain.SourceProjectData,
		Content: data,
	})
}

// Enrich calls the external AI collaborator with the current sources. On
// success the returned sources are appended and the context marked enriched;
// on failure the context is left unenriched and the error surfaces to the
// orchestrator.
func (b *ContextBuilder) Enrich(ctx context.Context, opts domain.EnrichmentOptions) error {
	if b.enricher == nil {
		return domain.WrapError(domain.ErrEnrichment, "enrich context", errors.New("no enricher configured"))
	}
	extra, err := b.enricher.Enrich(ctx, b.built.Sources, opts.Instructions)
	if err != nil {
		return domain.WrapError(domain.ErrEnrichment, "enrich context", err)
	}
	b.built.Sources = append(b.built.Sources, extra...)
	b.built.Enriched = true
	return nil
}

// Context returns a copy of the accumulated context.
func (b *ContextBuilder) Context() domain.GenerationContext {
	out := domain.GenerationContext{Enriched: b.built.Enriched}
	out.Sources = append(out.Sources, b.built.Sources...)
	return out
}

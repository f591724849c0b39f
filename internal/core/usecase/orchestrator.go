package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/core/ports"
)

// Orchestrator sequences context building, optional enrichment and document
// generation. Callers always receive a structured result; even a panic in a
// collaborator is absorbed into a failed result with timing populated.
type Orchestrator struct {
	enricher  ports.ContextEnricher
	generator *DocumentGenerator
}

func NewOrchestrator(enricher ports.ContextEnricher, generator *DocumentGenerator) *Orchestrator {
	return &Orchestrator{enricher: enricher, generator: generator}
}

func (o *Orchestrator) Execute(
	ctx context.Context,
	steps []domain.ModuleStep,
	projectData map[string]any,
	opts domain.WorkflowOptions,
) (result domain.WorkflowResult) {
	start := time.Now()
	result.Status = domain.DocumentFailed

	defer func() {
		result.ProcessingTimeMS = time.Since(start).Milliseconds()
		if recovered := recover(); recovered != nil {
			result.Status = domain.DocumentFailed
			result.Error = fmt.Sprintf("workflow panic: %v", recovered)
		}
	}()

	builder := NewContextBuilder(o.enricher)
	builder.AddStepResponses(steps)
	builder.AddProjectData(projectData)
	result.ContextBuilt = true

	if opts.Enrichment != nil {
		if err := builder.Enrich(ctx, *opts.Enrichment); err != nil {
			result.Error = err.Error()
			return result
		}
	}

	genCtx := builder.Context()
	result.Enriched = genCtx.Enriched

	result.GenerationResult = o.generator.Generate(ctx, genCtx, opts.ProjectID, opts.ModuleType, opts.Generation)
	return result
}

package ports

import (
	"context"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

// ModuleProgression is the inbound contract for step advancement.
type ModuleProgression interface {
	Enter(ctx context.Context, moduleID string) (*domain.Module, error)
	Next(ctx context.Context, moduleID, actor string) (domain.AdvanceResult, error)
	Previous(ctx context.Context, moduleID string) (domain.AdvanceResult, error)
}

// DocumentWorkflow is the inbound contract for the full generation workflow.
type DocumentWorkflow interface {
	Execute(ctx context.Context, steps []domain.ModuleStep, projectData map[string]any, opts domain.WorkflowOptions) domain.WorkflowResult
}

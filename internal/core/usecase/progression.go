package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/core/ports"
)

// Progression is the module/step state machine. Transitions are computed
// against the module's ordered step set, so "next" past the last step is
// expressed as module completion instead of an index overflow.
type Progression struct {
	modules ports.ModuleRepository
	steps   ports.StepRepository
}

func NewProgression(modules ports.ModuleRepository, steps ports.StepRepository) *Progression {
	return &Progression{modules: modules, steps: steps}
}

// Enter normalizes the module's cursor: a missing or foreign current step id
// is reset to the first configured step.
func (p *Progression) Enter(ctx context.Context, moduleID string) (*domain.Module, error) {
	module, err := p.modules.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if len(module.Steps) == 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "enter module", fmt.Errorf("module %s has no steps", moduleID))
	}

	if module.CurrentStepID != nil && module.StepByID(*module.CurrentStepID) != nil {
		return module, nil
	}

	first := module.Steps[0].ID
	if err := p.modules.UpdateModule(ctx, moduleID, domain.ModulePatch{CurrentStepID: &first}); err != nil {
		return nil, err
	}
	module.CurrentStepID = &first
	return module, nil
}

// Next completes the current step and advances the cursor; on the last step
// it transitions the module to completed instead.
func (p *Progression) Next(ctx context.Context, moduleID, actor string) (domain.AdvanceResult, error) {
	module, err := p.Enter(ctx, moduleID)
	if err != nil {
		return domain.AdvanceResult{}, err
	}

	idx, err := currentIndex(module)
	if err != nil {
		return domain.AdvanceResult{}, err
	}
	current := &module.Steps[idx]

	if current.Status != domain.StepCompleted {
		if err := p.steps.UpdateStepStatus(ctx, current.ID, domain.StepCompleted, actor); err != nil {
			return domain.AdvanceResult{}, err
		}
	}

	if idx == len(module.Steps)-1 {
		if err := p.modules.UpdateModuleStatus(ctx, moduleID, domain.ModuleCompleted); err != nil {
			return domain.AdvanceResult{}, err
		}
		updated, err := p.modules.GetModule(ctx, moduleID)
		if err != nil {
			return domain.AdvanceResult{}, err
		}
		return domain.AdvanceResult{Module: updated, Completed: true}, nil
	}

	next := module.Steps[idx+1].ID
	status := domain.ModuleInProgress
	if err := p.modules.UpdateModule(ctx, moduleID, domain.ModulePatch{CurrentStepID: &next, Status: &status}); err != nil {
		return domain.AdvanceResult{}, err
	}
	updated, err := p.modules.GetModule(ctx, moduleID)
	if err != nil {
		return domain.AdvanceResult{}, err
	}
	return domain.AdvanceResult{Module: updated}, nil
}

// Previous moves the cursor back one step without altering completion state.
// At the first step the caller owns cross-module navigation, reported via
// AtStart.
func (p *Progression) Previous(ctx context.Context, moduleID string) (domain.AdvanceResult, error) {
	module, err := p.Enter(ctx, moduleID)
	if err != nil {
		return domain.AdvanceResult{}, err
	}

	idx, err := currentIndex(module)
	if err != nil {
		return domain.AdvanceResult{}, err
	}
	if idx == 0 {
		return domain.AdvanceResult{Module: module, AtStart: true}, nil
	}

	previous := module.Steps[idx-1].ID
	if err := p.modules.UpdateModule(ctx, moduleID, domain.ModulePatch{CurrentStepID: &previous}); err != nil {
		return domain.AdvanceResult{}, err
	}
	updated, err := p.modules.GetModule(ctx, moduleID)
	if err != nil {
		return domain.AdvanceResult{}, err
	}
	return domain.AdvanceResult{Module: updated}, nil
}

func currentIndex(module *domain.Module) (int, error) {
	if module.CurrentStepID == nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "resolve current step", errors.New("module has no current step"))
	}
	for i := range module.Steps {
		if module.Steps[i].ID == *module.CurrentStepID {
			return i, nil
		}
	}
	return 0, domain.WrapError(domain.ErrInvalidInput, "resolve current step", fmt.Errorf("step %s not in module", *module.CurrentStepID))
}

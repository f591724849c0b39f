package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

// Walks a three-step module from entry to completion, then generates a
// markdown document from the accumulated latest responses.
func TestGuidedModuleEndToEnd(t *testing.T) {
	ctx := context.Background()

	modules := &moduleRepoFake{module: threeStepModule("")}
	steps := &stepRepoFake{modules: modules}
	progression := NewProgression(modules, steps)

	module, err := progression.Enter(ctx, "m-1")
	if err != nil {
		t.Fatalf("Enter() error = %v", err)
	}

	responses := []string{"Our vision...", "The problem is...", "Solution..."}
	for i, content := range responses {
		if _, err := steps.SaveResponse(ctx, *module.CurrentStepID, content, "alice"); err != nil {
			t.Fatalf("SaveResponse(step %d) error = %v", i+1, err)
		}
		result, err := progression.Next(ctx, "m-1", "alice")
		if err != nil {
			t.Fatalf("Next(step %d) error = %v", i+1, err)
		}
		module = result.Module

		wantCompleted := i == len(responses)-1
		if result.Completed != wantCompleted {
			t.Fatalf("after step %d: completed = %v, want %v", i+1, result.Completed, wantCompleted)
		}
	}
	if module.Status != domain.ModuleCompleted {
		t.Fatalf("module status = %s, want completed", module.Status)
	}

	service, _, storage, _ := newServiceFixture()
	orchestrator := NewOrchestrator(nil, NewDocumentGenerator(service))

	result := orchestrator.Execute(ctx, module.Steps, nil, domain.WorkflowOptions{
		ProjectID:  module.ProjectID,
		ModuleType: module.Type,
		Generation: domain.GenerationOptions{Format: domain.FormatMarkdown},
	})
	if result.Status != domain.DocumentCompleted {
		t.Fatalf("generation failed: %s", result.Error)
	}

	var artifact string
	for key, raw := range storage.objects {
		if strings.HasPrefix(key, "documents/") {
			artifact = string(raw)
		}
	}
	for _, want := range responses {
		if !strings.Contains(artifact, want) {
			t.Fatalf("artifact missing %q: %q", want, artifact)
		}
	}
}

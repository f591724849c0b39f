package domain

import "testing"

func TestLatestResponsePicksFlaggedVersion(t *testing.T) {
	step := ModuleStep{
		Responses: []StepResponse{
			{ID: "r-1", Version: 1, Content: "old"},
			{ID: "r-2", Version: 2, Content: "new", IsLatest: true},
		},
	}

	latest := step.LatestResponse()
	if latest == nil || latest.ID != "r-2" {
		t.Fatalf("LatestResponse() = %+v, want r-2", latest)
	}
}

func TestLatestResponseNilWithoutResponses(t *testing.T) {
	step := ModuleStep{}
	if latest := step.LatestResponse(); latest != nil {
		t.Fatalf("expected nil, got %+v", latest)
	}
}

func TestStepByIDIgnoresForeignIDs(t *testing.T) {
	module := Module{Steps: []ModuleStep{{ID: "s-1"}, {ID: "s-2"}}}

	if step := module.StepByID("s-2"); step == nil || step.ID != "s-2" {
		t.Fatalf("StepByID(s-2) = %+v", step)
	}
	if step := module.StepByID("ghost"); step != nil {
		t.Fatalf("expected nil for foreign id, got %+v", step)
	}
}

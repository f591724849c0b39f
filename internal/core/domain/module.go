package domain

import "time"

type ModuleStatus string

const (
	ModuleDraft      ModuleStatus = "draft"
	ModuleInProgress ModuleStatus = "in_progress"
	ModuleCompleted  ModuleStatus = "completed"
	ModuleArchived   ModuleStatus = "archived"
)

type StepStatus string

const (
	StepNotStarted StepStatus = "not_started"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// Module is a project-scoped workflow instance of a catalog module type.
type Module struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"project_id"`
	Type           ModuleType     `json:"module_type"`
	Title          string         `json:"title"`
	Status         ModuleStatus   `json:"status"`
	CurrentStepID  *string        `json:"current_step_id,omitempty"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Steps          []ModuleStep   `json:"steps,omitempty"`
}

// ModuleStep is one ordered step within a module. The step set of a module
// is exactly the set defined by its type's catalog entry, created once at
// module creation and never reordered.
type ModuleStep struct {
	ID          string         `json:"id"`
	ModuleID    string         `json:"module_id"`
	StepType    string         `json:"step_type"`
	Title       string         `json:"title"`
	OrderIndex  int            `json:"order_index"`
	Status      StepStatus     `json:"status"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CompletedBy string         `json:"completed_by,omitempty"`
	Responses   []StepResponse `json:"responses,omitempty"`
}

// StepResponse is an immutable, append-only version of the content entered
// for a step. At most one response per step carries IsLatest at any time.
type StepResponse struct {
	ID        string    `json:"id"`
	StepID    string    `json:"step_id"`
	Content   string    `json:"content"`
	Version   int       `json:"version"`
	IsLatest  bool      `json:"is_latest"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// LatestResponse returns the response flagged latest, or nil if the step has
// no responses yet.
func (s *ModuleStep) LatestResponse() *StepResponse {
	for i := range s.Responses {
		if s.Responses[i].IsLatest {
			return &s.Responses[i]
		}
	}
	return nil
}

// StepByID resolves one of the module's own steps; foreign or stale ids
// resolve to nil.
func (m *Module) StepByID(stepID string) *ModuleStep {
	for i := range m.Steps {
		if m.Steps[i].ID == stepID {
			return &m.Steps[i]
		}
	}
	return nil
}

// ModulePatch carries a partial module update. Nil fields are left untouched;
// last_activity_at is always stamped by the repository.
type ModulePatch struct {
	Title         *string
	Status        *ModuleStatus
	CurrentStepID *string
	ClearCurrent  bool
	Metadata      map[string]any
}

package domain

// GenerationOptions controls a single document generation.
type GenerationOptions struct {
	Format DocumentFormat `json:"format"`
	Name   string         `json:"name,omitempty"`
}

// GenerationResult is the structured outcome of document generation. The
// generator boundary converts every failure into a result; callers above it
// never handle exceptions for expected failure modes.
type GenerationResult struct {
	DocumentID string         `json:"document_id,omitempty"`
	Status     DocumentStatus `json:"status"`
	URL        string         `json:"url,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// EnrichmentOptions controls the optional AI enrichment stage.
type EnrichmentOptions struct {
	Instructions string `json:"instructions,omitempty"`
}

// WorkflowOptions configures one orchestrator run.
type WorkflowOptions struct {
	ProjectID  string             `json:"project_id"`
	ModuleType ModuleType         `json:"module_type"`
	Enrichment *EnrichmentOptions `json:"enrichment,omitempty"`
	Generation GenerationOptions  `json:"generation"`
}

// WorkflowResult reports the aggregate outcome and timing of a workflow run.
type WorkflowResult struct {
	GenerationResult
	ContextBuilt     bool  `json:"context_built"`
	Enriched         bool  `json:"enriched"`
	ProcessingTimeMS int64 `json:"processing_time_ms"`
}

// AdvanceResult describes the effect of one progression transition.
type AdvanceResult struct {
	Module *Module `json:"module"`
	// AtStart is set when "previous" was requested on the first step; the
	// caller owns cross-module navigation in that case.
	AtStart bool `json:"at_start,omitempty"`
	// Completed is set when "next" on the last step completed the module.
	Completed bool `json:"completed,omitempty"`
}

// GenerationJob is the payload of an asynchronous generation request.
type GenerationJob struct {
	ModuleID     string         `json:"module_id"`
	Format       DocumentFormat `json:"format"`
	Enrich       bool           `json:"enrich"`
	Instructions string         `json:"instructions,omitempty"`
	RequestedBy  string         `json:"requested_by,omitempty"`
}

package domain

// ModuleType identifies a kind of guided module. The closed set of types and
// their ordered step definitions live in the catalog package; an unknown type
// is a configuration error, never a silent fallthrough.
type ModuleType string

const (
	ModuleVisionProblem        ModuleType = "vision-problem"
	ModuleBusinessModelCanvas  ModuleType = "business-model-canvas"
	ModuleMarketAnalysis       ModuleType = "market-analysis"
	ModuleFinancialProjections ModuleType = "financial-projections"
)

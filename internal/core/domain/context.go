package domain

type SourceType string

const (
	SourceModuleResponse SourceType = "module_response"
	SourceProjectData    SourceType = "project_data"
	SourceMarketResearch SourceType = "market_research"
	SourceCompetitorData SourceType = "competitor_data"
	SourceFinancialData  SourceType = "financial_data"
)

// Source is one tagged contribution to a generation context.
type Source struct {
	Type     SourceType     `json:"type"`
	Content  any            `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GenerationContext is the ordered, accumulated input to document generation.
type GenerationContext struct {
	Sources  []Source `json:"sources"`
	Enriched bool     `json:"enriched"`
}

// Flatten merges the context sources into a single template-data map:
// module responses keyed by step type at the top level, project data fields
// merged at the top level, market research and financial data under dedicated
// namespaces, competitor data concatenated into an array.
func (c GenerationContext) Flatten() map[string]any {
	data := make(map[string]any)
	var competitors []any

	for _, src := range c.Sources {
		switch src.Type {
		case SourceModuleResponse:
			key, _ := src.Metadata["step_type"].(string)
			if key == "" {
				key, _ = src.Metadata["step_id"].(string)
			}
			if key != "" {
				data[key] = src.Content
			}
		case SourceProjectData:
			if fields, ok := src.Content.(map[string]any); ok {
				for k, v := range fields {
					data[k] = v
				}
			}
		case SourceMarketResearch:
			mergeNamespace(data, "market_research", src.Content)
		case SourceFinancialData:
			mergeNamespace(data, "financial_data", src.Content)
		case SourceCompetitorData:
			competitors = append(competitors, src.Content)
		}
	}

	if len(competitors) > 0 {
		data["competitors"] = competitors
	}
	return data
}

func mergeNamespace(data map[string]any, namespace string, content any) {
	existing, ok := data[namespace].(map[string]any)
	if !ok {
		existing = make(map[string]any)
	}
	if fields, ok := content.(map[string]any); ok {
		for k, v := range fields {
			existing[k] = v
		}
	} else {
		existing["content"] = content
	}
	data[namespace] = existing
}

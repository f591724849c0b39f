package ollama

import (
	"fmt"
	"strings"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

func buildEnrichmentPrompt(sources []domain.Source, instructions string) string {
	var sb strings.Builder
	sb.WriteString("You are a business research assistant. Given the draft content of a ")
	sb.WriteString("business-planning module below, produce supplementary research.\n\n")
	sb.WriteString("Draft content:\n")

	for _, src := range sources {
		stepType, _ := src.Metadata["step_type"].(string)
		if stepType != "" {
			fmt.Fprintf(&sb, "- [%s/%s] %v\n", src.Type, stepType, src.Content)
		} else {
			fmt.Fprintf(&sb, "- [%s] %v\n", src.Type, src.Content)
		}
	}

	if strings.TrimSpace(instructions) != "" {
		sb.WriteString("\nAdditional instructions: ")
		sb.WriteString(instructions)
		sb.WriteString("\n")
	}

	sb.WriteString(`
Respond with a single JSON object of the form:
{"sources": [{"type": "market_research" | "competitor_data" | "financial_data", "content": {...}}]}
Only include source types you have something substantive for.`)
	return sb.String()
}

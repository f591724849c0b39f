// Package ollama implements the AI enrichment collaborator against an
// Ollama-compatible generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Enrich asks the model for supplementary research sources based on the
// accumulated context. Failures propagate; the caller decides what an
// unenriched context means.
func (c *Client) Enrich(ctx context.Context, sources []domain.Source, instructions string) ([]domain.Source, error) {
	raw, err := c.generateJSON(ctx, buildEnrichmentPrompt(sources, instructions))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Sources []struct {
			Type    string         `json:"type"`
			Content map[string]any `json:"content"`
		} `json:"sources"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse enrichment json: %w", err)
	}

	out := make([]domain.Source, 0, len(parsed.Sources))
	for _, src := range parsed.Sources {
		sourceType := domain.SourceType(src.Type)
		switch sourceType {
		case domain.SourceMarketResearch, domain.SourceCompetitorData, domain.SourceFinancialData:
		default:
			continue
		}
		out = append(out, domain.Source{
			Type:     sourceType,
			Content:  src.Content,
			Metadata: map[string]any{"origin": "enrichment"},
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("enrichment produced no usable sources")
	}
	return out, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call enrichment model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("enrichment model returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode enrichment response: %w", err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

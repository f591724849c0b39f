package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

func enrichmentServer(t *testing.T, modelResponse string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": modelResponse})
	}))
}

func TestEnrichFiltersToKnownSourceTypes(t *testing.T) {
	server := enrichmentServer(t, `{"sources":[
		{"type":"market_research","content":{"tam":"2B"}},
		{"type":"competitor_data","content":{"name":"Acme"}},
		{"type":"module_response","content":{"sneaky":"ignored"}},
		{"type":"weather","content":{"also":"ignored"}}
	]}`, http.StatusOK)
	defer server.Close()

	client := New(server.URL, "llama3.1:8b")
	sources, err := client.Enrich(context.Background(), []domain.Source{
		{Type: domain.SourceModuleResponse, Content: "our vision", Metadata: map[string]any{"step_type": "vision"}},
	}, "focus on TAM")
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 usable sources, got %d", len(sources))
	}
	if sources[0].Type != domain.SourceMarketResearch || sources[1].Type != domain.SourceCompetitorData {
		t.Fatalf("types = %s, %s", sources[0].Type, sources[1].Type)
	}
	for _, src := range sources {
		if src.Metadata["origin"] != "enrichment" {
			t.Fatalf("origin metadata missing: %#v", src.Metadata)
		}
	}
}

func TestEnrichPropagatesModelFailure(t *testing.T) {
	server := enrichmentServer(t, "", http.StatusServiceUnavailable)
	defer server.Close()

	client := New(server.URL, "llama3.1:8b")
	if _, err := client.Enrich(context.Background(), nil, ""); err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestEnrichRejectsEmptyResult(t *testing.T) {
	server := enrichmentServer(t, `{"sources":[]}`, http.StatusOK)
	defer server.Close()

	client := New(server.URL, "llama3.1:8b")
	if _, err := client.Enrich(context.Background(), nil, ""); err == nil {
		t.Fatalf("expected error when the model returns nothing usable")
	}
}

func TestExtractJSONObjectTrimsProse(t *testing.T) {
	raw := "Sure, here is the JSON you asked for:\n{\"sources\":[]}\nHope that helps!"
	if got := extractJSONObject(raw); got != `{"sources":[]}` {
		t.Fatalf("extractJSONObject() = %q", got)
	}
}

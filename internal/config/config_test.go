package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("APIPort = %s", cfg.APIPort)
	}
	if cfg.NATSSubject != "documents.generate" {
		t.Fatalf("NATSSubject = %s", cfg.NATSSubject)
	}
	if cfg.SignedURLTTLSeconds != 3600 {
		t.Fatalf("SignedURLTTLSeconds = %d", cfg.SignedURLTTLSeconds)
	}
	if cfg.DefaultFormat != "pdf" {
		t.Fatalf("DefaultFormat = %s", cfg.DefaultFormat)
	}
	if !cfg.EnrichmentEnabled {
		t.Fatalf("enrichment should default to enabled")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("RENDERER_TIMEOUT_SECONDS", "15")
	t.Setenv("ENRICHMENT_ENABLED", "false")

	cfg := Load()
	if cfg.APIPort != "9999" {
		t.Fatalf("APIPort = %s", cfg.APIPort)
	}
	if cfg.RendererTimeoutSeconds != 15 {
		t.Fatalf("RendererTimeoutSeconds = %d", cfg.RendererTimeoutSeconds)
	}
	if cfg.EnrichmentEnabled {
		t.Fatalf("EnrichmentEnabled should be false")
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("API_RATE_LIMIT_RPS", "not-a-number")
	t.Setenv("ENRICHMENT_ENABLED", "not-a-bool")

	cfg := Load()
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("APIRateLimitRPS = %d, want fallback", cfg.APIRateLimitRPS)
	}
	if !cfg.EnrichmentEnabled {
		t.Fatalf("EnrichmentEnabled should fall back to true")
	}
}

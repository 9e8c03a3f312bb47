package config

import "testing"

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("CHUNK_OVERLAP", "")
	t.Setenv("SEARCH_LIMIT", "")
	t.Setenv("LLM_TEMPERATURE", "")
	t.Setenv("THEME_MIN_CONFIDENCE", "")

	cfg := Load()
	if cfg.ChunkSize != 900 {
		t.Fatalf("expected default chunk size 900, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 150 {
		t.Fatalf("expected default chunk overlap 150, got %d", cfg.ChunkOverlap)
	}
	if cfg.SearchLimit != 5 {
		t.Fatalf("expected default search limit 5, got %d", cfg.SearchLimit)
	}
	if cfg.LLMTemperature != 0.1 {
		t.Fatalf("expected default temperature 0.1, got %v", cfg.LLMTemperature)
	}
	if cfg.ThemeMinConfidence != 0.5 {
		t.Fatalf("expected default theme confidence floor 0.5, got %v", cfg.ThemeMinConfidence)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_RATE_LIMIT_BURST", "7")
	t.Setenv("OCR_ENABLED", "true")

	cfg := Load()
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected llm provider override, got %q", cfg.LLMProvider)
	}
	if cfg.VectorBackend != "memory" {
		t.Fatalf("expected vector backend override, got %q", cfg.VectorBackend)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIRateLimitBurst != 7 {
		t.Fatalf("expected rate limit burst 7, got %d", cfg.APIRateLimitBurst)
	}
	if !cfg.OCREnabled {
		t.Fatalf("expected OCR enabled")
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("OCR_ENABLED", "maybe")

	cfg := Load()
	if cfg.ChunkSize != 900 {
		t.Fatalf("expected fallback chunk size, got %d", cfg.ChunkSize)
	}
	if cfg.LLMTemperature != 0.1 {
		t.Fatalf("expected fallback temperature, got %v", cfg.LLMTemperature)
	}
	if cfg.OCREnabled {
		t.Fatalf("expected fallback OCR flag false")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("OCR_TIMEOUT", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected 10MiB upload ceiling, got %d", cfg.MaxUploadBytes)
	}
	if cfg.RequestTimeout != 55*time.Second {
		t.Fatalf("expected 55s request budget, got %s", cfg.RequestTimeout)
	}
	if cfg.OCRTimeout != 12*time.Second || cfg.OCRFallback != 8*time.Second {
		t.Fatalf("unexpected ocr timeouts %s/%s", cfg.OCRTimeout, cfg.OCRFallback)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected openai provider, got %q", cfg.LLMProvider)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "*.vercel.app" {
		t.Fatalf("unexpected default origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("CLASSIFY_TIMEOUT", "7")
	t.Setenv("ANALYZE_TIMEOUT", "1m30s")
	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.MaxUploadBytes != 2048 {
		t.Fatalf("expected upload override, got %d", cfg.MaxUploadBytes)
	}
	if cfg.ClassifyTimeout != 7*time.Second {
		t.Fatalf("expected bare integer as seconds, got %s", cfg.ClassifyTimeout)
	}
	if cfg.AnalyzeTimeout != 90*time.Second {
		t.Fatalf("expected duration string, got %s", cfg.AnalyzeTimeout)
	}
	if cfg.LLMProvider != "ollama" {
		t.Fatalf("expected lowercased provider, got %q", cfg.LLMProvider)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://a.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("OCR_MAX_CONCURRENT", "many")
	t.Setenv("OCR_TIMEOUT", "-3s")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "sometimes")

	cfg := Load()
	if cfg.OCRMaxConcurrent != 2 {
		t.Fatalf("expected fallback concurrency, got %d", cfg.OCRMaxConcurrent)
	}
	if cfg.OCRTimeout != 12*time.Second {
		t.Fatalf("expected fallback ocr timeout, got %s", cfg.OCRTimeout)
	}
	if !cfg.ResilienceBreakerEnabled {
		t.Fatalf("expected breaker default to stay enabled")
	}
}

func TestLoadViperReadsConfigFile(t *testing.T) {
	t.Setenv("OCR_LANGUAGE", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "poactl.yaml")
	content := "ocr_language: deu\nopenai_classify_model: gpt-test\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg := LoadViper(v)
	if cfg.OCRLanguage != "deu" {
		t.Fatalf("expected language from file, got %q", cfg.OCRLanguage)
	}
	if cfg.OpenAIClassifyModel != "gpt-test" {
		t.Fatalf("expected model from file, got %q", cfg.OpenAIClassifyModel)
	}
	if cfg.TesseractBin != "tesseract" {
		t.Fatalf("expected default binary, got %q", cfg.TesseractBin)
	}
}

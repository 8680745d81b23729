package config

import (
	"strings"
	"testing"

	internalconfig "github.com/foxseedlab/n7chat/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LLMModel != "openai/gpt-oss-120b" {
		t.Fatalf("unexpected model: %s", cfg.LLMModel)
	}
	if cfg.RecognizerBackend != internalconfig.RecognizerBackendNone {
		t.Fatalf("expected recognizer backend none, got %s", cfg.RecognizerBackend)
	}
	if cfg.MeiteiMinCodepoints != 3 || cfg.TranslationMinInbound != 3 || cfg.TranslationMinOutbound != 10 {
		t.Fatalf("unexpected translation policy: %d/%d/%d", cfg.MeiteiMinCodepoints, cfg.TranslationMinInbound, cfg.TranslationMinOutbound)
	}
	if cfg.SystemPrompt == "" {
		t.Fatal("expected default system prompt")
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when LLM_API_KEY is missing")
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("LLM_API_KEY", "key")
	t.Setenv("RECOGNIZER_BACKEND", "cloud_speech")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_CLOUD_PROJECT_ID") {
		t.Fatalf("expected project id error, got %v", err)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8460 {
		t.Errorf("expected default port 8460, got %d", cfg.Port)
	}
	if cfg.AIProvider != "gemini" {
		t.Errorf("expected default provider gemini, got %q", cfg.AIProvider)
	}
	if cfg.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("unexpected default model %q", cfg.GeminiModel)
	}
	if cfg.TokenTTL != 60*time.Minute {
		t.Errorf("expected 60m token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.OracleTimeout != 60*time.Second {
		t.Errorf("expected 60s oracle timeout, got %v", cfg.OracleTimeout)
	}
	if len(cfg.CaptionLangs) != 2 || cfg.CaptionLangs[0] != "th" || cfg.CaptionLangs[1] != "en" {
		t.Errorf("unexpected default caption languages %v", cfg.CaptionLangs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TRIAGE_PORT", "9000")
	t.Setenv("AI_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("TOKEN_TTL_MINUTES", "15")
	t.Setenv("ORACLE_TIMEOUT_SECONDS", "30")
	t.Setenv("CAPTION_LANGS", "en, ja ,")

	cfg := Load()

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.AIProvider != "claude" {
		t.Errorf("expected provider claude, got %q", cfg.AIProvider)
	}
	if cfg.AnthropicAPIKey != "sk-test" {
		t.Errorf("api key not read")
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Errorf("expected 15m token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.OracleTimeout != 30*time.Second {
		t.Errorf("expected 30s oracle timeout, got %v", cfg.OracleTimeout)
	}
	if len(cfg.CaptionLangs) != 2 || cfg.CaptionLangs[0] != "en" || cfg.CaptionLangs[1] != "ja" {
		t.Errorf("caption language list not parsed: %v", cfg.CaptionLangs)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TRIAGE_PORT", "not-a-number")
	t.Setenv("TOKEN_TTL_MINUTES", "-5")

	cfg := Load()

	if cfg.Port != 8460 {
		t.Errorf("bad port should fall back to default, got %d", cfg.Port)
	}
	if cfg.TokenTTL != 60*time.Minute {
		t.Errorf("non-positive ttl should fall back to default, got %v", cfg.TokenTTL)
	}
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port              int
	DatabaseURL       string
	LogLevel          string
	AIProvider        string
	GeminiAPIKey      string
	GeminiModel       string
	AnthropicAPIKey   string
	AnthropicModel    string
	JWTSecret         string
	TokenTTL          time.Duration
	OracleTimeout     time.Duration
	FetchTimeout      time.Duration
	CaptionLangs      []string
	SlackBotToken     string
	SlackAlertChannel string
	NatsURL           string
	NatsToken         string
}

func Load() Config {
	return Config{
		Port:              envInt("TRIAGE_PORT", 8460),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		AIProvider:        envStr("AI_PROVIDER", "gemini"),
		GeminiAPIKey:      envStr("GEMINI_API_KEY", ""),
		GeminiModel:       envStr("GEMINI_MODEL", "gemini-2.0-flash"),
		AnthropicAPIKey:   envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    envStr("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		JWTSecret:         envStr("JWT_SECRET", ""),
		TokenTTL:          envDuration("TOKEN_TTL_MINUTES", 60*time.Minute),
		OracleTimeout:     envDuration("ORACLE_TIMEOUT_SECONDS", 60*time.Second),
		FetchTimeout:      envDuration("FETCH_TIMEOUT_SECONDS", 15*time.Second),
		CaptionLangs:      envList("CAPTION_LANGS", []string{"th", "en"}),
		SlackBotToken:     envStr("SLACK_BOT_TOKEN", ""),
		SlackAlertChannel: envStr("SLACK_ALERTS_CHANNEL", ""),
		NatsURL:           envStr("NATS_URL", ""),
		NatsToken:         envStr("NATS_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration reads an integer env var in the unit named by the key suffix
// (_MINUTES or _SECONDS).
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	if strings.HasSuffix(key, "_MINUTES") {
		return time.Duration(n) * time.Minute
	}
	return time.Duration(n) * time.Second
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

package main

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mindsignal/triage/internal/analyzer"
	"github.com/mindsignal/triage/internal/api"
	"github.com/mindsignal/triage/internal/config"
	"github.com/mindsignal/triage/internal/events"
	"github.com/mindsignal/triage/internal/evidence"
	"github.com/mindsignal/triage/internal/notify"
	"github.com/mindsignal/triage/internal/oracle"
	"github.com/mindsignal/triage/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("triaged starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Oracle client; nil means unconfigured, the analyzer degrades to
	// ERROR results and the health probe reports ai_ready=false.
	client := selectOracle(cfg)
	if client == nil {
		slog.Warn("no oracle credential configured, classification disabled")
	} else {
		slog.Info("oracle client ready", "provider", client.Provider())
	}

	gatherer := evidence.NewGatherer(&http.Client{Timeout: cfg.FetchTimeout}, cfg.CaptionLangs, slog.Default())
	anl := analyzer.New(client, gatherer, slog.Default())
	anl.SetOracleTimeout(cfg.OracleTimeout)

	// Slack alert poster (optional, triage works without it, just no
	// high-urgency channel pings)
	var slackPoster *notify.Poster
	if cfg.SlackBotToken != "" && cfg.SlackAlertChannel != "" {
		slackPoster = notify.NewPoster(cfg.SlackBotToken, cfg.SlackAlertChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackAlertChannel)
	} else {
		slog.Warn("slack not configured, RED alerts stay in the database queue")
	}

	// NATS publisher (optional)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.Connect(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		// Ephemeral secret: tokens stop working across restarts, which is
		// acceptable for development but logged loudly.
		jwtSecret = make([]byte, 32)
		if _, err := rand.Read(jwtSecret); err != nil {
			slog.Error("failed to generate jwt secret", "error", err)
			os.Exit(1)
		}
		slog.Warn("JWT_SECRET not set, using an ephemeral secret")
	}

	srv := api.NewServer(cfg.Port, api.Deps{
		Store:      db,
		Classifier: anl,
		Slack:      slackPoster,
		Events:     publisher,
		JWTSecret:  jwtSecret,
		TokenTTL:   cfg.TokenTTL,
		Logger:     slog.Default(),
	})
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("triaged ready", "port", cfg.Port, "ai_ready", anl.Ready())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("triaged stopped")
}

// selectOracle picks the configured backend. Gemini is the default; the paid
// Anthropic backend is opt-in via AI_PROVIDER=claude.
func selectOracle(cfg config.Config) oracle.Client {
	switch cfg.AIProvider {
	case "claude":
		if cfg.AnthropicAPIKey == "" {
			return nil
		}
		return oracle.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		if cfg.GeminiAPIKey == "" {
			return nil
		}
		return oracle.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

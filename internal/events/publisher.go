// Package events publishes triage outcomes on NATS for downstream consumers
// (dashboards, on-call escalation bots). Like the Slack poster, the publisher
// is optional.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectAnalysisCompleted is published for every persisted analysis.
	SubjectAnalysisCompleted = "triage.analysis.completed"
	// SubjectRedAlert is published only for RED-tier results.
	SubjectRedAlert = "triage.alert.red"
)

// AnalysisEvent is the payload for both subjects.
type AnalysisEvent struct {
	AnalysisID string   `json:"analysis_id"`
	UserID     string   `json:"user_id"`
	Level      string   `json:"level"`
	Score      int      `json:"score"`
	Keywords   []string `json:"keywords,omitempty"`
	Provider   string   `json:"ai_provider"`
	Timestamp  string   `json:"timestamp"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func Connect(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}

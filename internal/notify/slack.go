// Package notify posts high-urgency clinician alerts to Slack. The poster is
// optional; the service runs without it, keeping only database notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mindsignal/triage/internal/analyzer"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// SetTestTransport redirects API calls to a test server.
func (p *Poster) SetTestTransport(apiURL string) {
	p.apiURL = apiURL
}

// PostAlert posts a RED-tier alert for a patient. Only genuine REDs (or
// link-escalated REDs) should reach this; lower tiers stay in the database
// review queue.
func (p *Poster) PostAlert(ctx context.Context, userID, name string, result analyzer.Result, preview string) error {
	text := formatAlert(userID, name, result, preview)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted alert to slack", "ts", slackResp.TS, "user_id", userID)
	return nil
}

func formatAlert(userID, name string, result analyzer.Result, preview string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, ":rotating_light: *CRITICAL: high risk detected*\n")
	fmt.Fprintf(&sb, "*Patient:* %s (%s)\n", name, userID)
	fmt.Fprintf(&sb, "*Level:* %s | *Score:* %d\n", result.Level, result.Score)
	if result.Reason != "" {
		fmt.Fprintf(&sb, "*Reason:* %s\n", result.Reason)
	}
	if len(result.Keywords) > 0 {
		fmt.Fprintf(&sb, "*Keywords:* %s\n", strings.Join(result.Keywords, ", "))
	}
	if preview != "" {
		fmt.Fprintf(&sb, "> %s", preview)
	}

	return sb.String()
}

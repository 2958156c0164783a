package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Analysis struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	Content        string    `json:"content"`
	Level          string    `json:"result_level"`
	Score          int       `json:"score"`
	Reason         string    `json:"reason"`
	Keywords       []string  `json:"keywords"`
	Recommendation string    `json:"recommendation"`
	Provider       string    `json:"ai_provider"`
	CreatedAt      time.Time `json:"timestamp"`
}

func (s *Store) WriteAnalysis(ctx context.Context, a Analysis) (uuid.UUID, error) {
	id := uuid.New()
	keywords := a.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analyses (id, user_id, content, level, score, reason, keywords, recommendation, provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
		id, a.UserID, a.Content, a.Level, a.Score, a.Reason, keywords, a.Recommendation, a.Provider,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

// HistoryByUser returns a user's analyses, newest first.
func (s *Store) HistoryByUser(ctx context.Context, userID string) ([]Analysis, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, content, level, score, reason, keywords, recommendation, provider, created_at
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(&a.ID, &a.UserID, &a.Content, &a.Level, &a.Score, &a.Reason, &a.Keywords, &a.Recommendation, &a.Provider, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RedCase is one row of the acute-risk export: a user whose latest analysis
// is RED, with the reason behind it.
type RedCase struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Status     string    `json:"status"`
	LastUpdate time.Time `json:"last_update"`
	RiskReason string    `json:"risk_reason"`
}

// RedCases returns users whose most recent analysis is RED.
func (s *Store) RedCases(ctx context.Context) ([]RedCase, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.name, COALESCE(u.age, 0), a.level, a.created_at, a.reason
		FROM users u
		JOIN LATERAL (
			SELECT level, created_at, reason FROM analyses
			WHERE user_id = u.id
			ORDER BY created_at DESC
			LIMIT 1
		) a ON true
		WHERE a.level = 'RED'
		ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select red cases: %w", err)
	}
	defer rows.Close()

	var out []RedCase
	for rows.Next() {
		var c RedCase
		if err := rows.Scan(&c.ID, &c.Name, &c.Age, &c.Status, &c.LastUpdate, &c.RiskReason); err != nil {
			return nil, fmt.Errorf("scan red case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

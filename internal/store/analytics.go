package store

import (
	"context"
	"fmt"
)

// RiskBucket is one slice of the clinician dashboard's risk distribution,
// counting users by their latest analysis level.
type RiskBucket struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

func (s *Store) RiskDistribution(ctx context.Context) ([]RiskBucket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(a.level, 'UNKNOWN') AS level, count(*) AS n
		FROM users u
		LEFT JOIN LATERAL (
			SELECT level FROM analyses
			WHERE user_id = u.id
			ORDER BY created_at DESC
			LIMIT 1
		) a ON true
		GROUP BY 1
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("select risk distribution: %w", err)
	}
	defer rows.Close()

	var out []RiskBucket
	for rows.Next() {
		var b RiskBucket
		if err := rows.Scan(&b.Level, &b.Count); err != nil {
			return nil, fmt.Errorf("scan risk bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// TrendPoint is the average severity score for one day.
type TrendPoint struct {
	Date     string  `json:"date"`
	AvgScore float64 `json:"avgScore"`
}

// ScoreTrend aggregates average scores per day over the last n days,
// excluding ERROR rows (their zero scores would drag the average down
// without meaning anything clinically).
func (s *Store) ScoreTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(created_at::date, 'YYYY-MM-DD') AS day, round(avg(score)::numeric, 2)::float8
		FROM analyses
		WHERE created_at >= now() - ($1 || ' days')::interval
		  AND level <> 'ERROR'
		GROUP BY created_at::date
		ORDER BY created_at::date`, fmt.Sprint(days))
	if err != nil {
		return nil, fmt.Errorf("select score trend: %w", err)
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.AvgScore); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

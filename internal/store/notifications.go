package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	Message        string    `json:"message"`
	ContentPreview string    `json:"content_preview"`
	ContentType    string    `json:"content_type"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"timestamp"`
}

func (s *Store) CreateNotification(ctx context.Context, n Notification) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, message, content_preview, content_type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, now())`,
		id, n.UserID, n.Message, n.ContentPreview, n.ContentType,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// UnreadNotifications returns unread alerts, newest first.
func (s *Store) UnreadNotifications(ctx context.Context) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, message, content_preview, content_type, is_read, created_at
		FROM notifications
		WHERE is_read = false
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.ContentPreview, &n.ContentType, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags one notification as read. Returns ErrNotFound
// when the id matches nothing.
func (s *Store) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

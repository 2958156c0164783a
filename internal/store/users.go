package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type User struct {
	ID                string
	Name              string
	Age               int
	Gender            string
	MedicalHistory    string
	SocialMediaHandle string
	PasswordHash      string
	RegisteredAt      time.Time
}

// UserSummary is a user joined with their latest analysis outcome, which is
// what clinician-facing listings show.
type UserSummary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Age               int        `json:"age"`
	Gender            string     `json:"gender"`
	MedicalHistory    string     `json:"medical_history"`
	SocialMediaHandle string     `json:"social_media_handle"`
	Status            string     `json:"status"`
	LastUpdate        *time.Time `json:"last_update"`
}

func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, age, gender, medical_history, social_media_handle, password_hash, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		u.ID, u.Name, u.Age, u.Gender, u.MedicalHistory, u.SocialMediaHandle, u.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(age, 0), COALESCE(gender, ''), COALESCE(medical_history, ''),
		       COALESCE(social_media_handle, ''), COALESCE(password_hash, ''), registered_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Age, &u.Gender, &u.MedicalHistory, &u.SocialMediaHandle, &u.PasswordHash, &u.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// EnsureUser creates a guest placeholder when an analysis arrives for an
// unknown user id, so history and notifications still have a subject to hang
// off.
func (s *Store) EnsureUser(ctx context.Context, id string) (User, error) {
	u, err := s.GetUser(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	guest := User{ID: id, Name: "Guest " + id, Gender: "Unknown"}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, name, age, gender, registered_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO NOTHING`,
		guest.ID, guest.Name, guest.Age, guest.Gender,
	)
	if err != nil {
		return User{}, fmt.Errorf("insert guest user: %w", err)
	}
	return guest, nil
}

// ListUserSummaries returns all users with the level and time of their most
// recent analysis. Users with no analyses yet report status UNKNOWN.
func (s *Store) ListUserSummaries(ctx context.Context) ([]UserSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.name, COALESCE(u.age, 0), COALESCE(u.gender, ''),
		       COALESCE(u.medical_history, ''), COALESCE(u.social_media_handle, ''),
		       COALESCE(a.level, 'UNKNOWN'), a.created_at
		FROM users u
		LEFT JOIN LATERAL (
			SELECT level, created_at FROM analyses
			WHERE user_id = u.id
			ORDER BY created_at DESC
			LIMIT 1
		) a ON true
		ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("select user summaries: %w", err)
	}
	defer rows.Close()

	var out []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Age, &u.Gender, &u.MedicalHistory, &u.SocialMediaHandle, &u.Status, &u.LastUpdate); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

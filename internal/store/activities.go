package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/crm-backend/internal/models"
)

// ActivityStore is the PostgreSQL-backed timeline feed.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) Record(ctx context.Context, a models.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, user_id, type, description, entity_type, entity_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.UserID, string(a.Type), a.Description, a.EntityType, a.EntityID, a.CreatedAt)
	return err
}

// Recent returns the user's latest activities, newest first.
func (s *ActivityStore) Recent(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, description, entity_type, entity_id, created_at
		FROM activities
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

// Since returns the user's activities at or after since, newest first.
func (s *ActivityStore) Since(ctx context.Context, userID string, since time.Time) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, description, entity_type, entity_id, created_at
		FROM activities
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

func scanActivities(rows *sql.Rows) ([]models.Activity, error) {
	defer rows.Close()
	out := make([]models.Activity, 0)
	for rows.Next() {
		var a models.Activity
		var typ string
		if err := rows.Scan(&a.ID, &a.UserID, &typ, &a.Description, &a.EntityType, &a.EntityID, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Type = models.ActivityType(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}

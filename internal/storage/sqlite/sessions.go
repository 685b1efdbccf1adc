package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
)

// Session fetches a raw session row by id.
func (s *Store) Session(ctx context.Context, id string) (models.Session, error) {
	var row models.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, data, expiration_date FROM sessions WHERE id = ?`, id).
		Scan(&row.ID, &row.Data, &row.ExpirationDate)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	return row, nil
}

// UpsertSession writes the session row, replacing any existing one.
func (s *Store) UpsertSession(ctx context.Context, id, data string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, data, expiration_date) VALUES(?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET data = excluded.data, expiration_date = excluded.expiration_date`,
		id, data, expiration)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes the session row. Deleting a missing id is not an
// error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

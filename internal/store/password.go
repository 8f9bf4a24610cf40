package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/examdesk/internal/model"
)

// SetPasswordHash stores the grader password hash. It refuses to replace an
// existing one.
func (s *Store) SetPasswordHash(ctx context.Context, hash string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_password`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("password already configured: %w", model.ErrConflict)
		}
		_, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO auth_password (password_hash, created_at) VALUES (?, ?)`),
			hash, time.Now().UTC(),
		)
		if err != nil {
			slog.Error("failed to store password", "error", err)
			return err
		}
		slog.Info("grader password configured")
		return nil
	})
}

// GetPasswordHash returns the most recent password hash and when it was set.
// An empty hash means no password is configured.
func (s *Store) GetPasswordHash(ctx context.Context) (string, time.Time, error) {
	var (
		hash      string
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash, created_at FROM auth_password ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	return hash, createdAt, err
}

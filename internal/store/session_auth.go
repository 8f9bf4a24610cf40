package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examdesk/internal/model"
)

const authSessionTTL = 24 * time.Hour

// CreateAuthSession creates a new auth session token.
func (s *Store) CreateAuthSession(ctx context.Context) (string, error) {
	token := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO auth_sessions (id, created_at, expires_at) VALUES (?, ?, ?)`),
		token, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession returns the auth session for the given token, or nil if not found/expired.
func (s *Store) GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, created_at, expires_at FROM auth_sessions WHERE id = ?`), token,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(ctx, token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM auth_sessions WHERE id = ?`), token)
	return err
}

// CleanupExpiredSessions removes all expired auth sessions.
func (s *Store) CleanupExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM auth_sessions WHERE expires_at < ?`), time.Now().UTC())
	return err
}

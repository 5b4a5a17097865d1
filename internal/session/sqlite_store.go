package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/pkg/database"
)

// SQLiteStore keeps remembered sessions in the sessions table
type SQLiteStore struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new sqlite-backed store. The sessions table must
// exist; see the migrations package.
func NewSQLiteStore(db *database.DB, logger *zap.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger,
	}
}

// Save creates or replaces a session
func (r *SQLiteStore) Save(ctx context.Context, s *Session) error {
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to marshal session user: %w", err)
	}

	query := `
		INSERT INTO sessions (
			id, user_id, user_json, access_token, refresh_token,
			remember, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			user_json = excluded.user_json,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			remember = excluded.remember,
			expires_at = excluded.expires_at
	`

	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.User.ID,
		string(userJSON),
		s.AccessToken,
		s.RefreshToken,
		s.Remember,
		storedTime(s.CreatedAt),
		storedTime(s.ExpiresAt),
	)
	if err != nil {
		r.logger.Error("Failed to save session", zap.Int64("user_id", s.User.ID), zap.Error(err))
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by id
func (r *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, user_json, access_token, refresh_token,
			remember, created_at, expires_at
		FROM sessions
		WHERE id = ?
	`

	var (
		s        Session
		userJSON string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&userJSON,
		&s.AccessToken,
		&s.RefreshToken,
		&s.Remember,
		&s.CreatedAt,
		&s.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var user entity.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session user: %w", err)
	}
	s.User = user
	return &s, nil
}

// Delete removes a session
func (r *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByAccessToken removes every session holding token
func (r *SQLiteStore) DeleteByAccessToken(ctx context.Context, token string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "DELETE FROM sessions WHERE access_token = ? RETURNING user_id", token)
	if err != nil {
		return nil, fmt.Errorf("failed to delete sessions by token: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan deleted session: %w", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to delete sessions by token: %w", err)
	}
	return users, nil
}

// PurgeExpired removes sessions whose expires_at has passed
func (r *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", storedTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// storedTime normalizes times so the text sqlite compares has one layout
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

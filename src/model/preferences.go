package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLitePreferenceStore keeps small per-user string settings in the
// preferences table.
type SQLitePreferenceStore struct {
	db *sql.DB
}

func NewSQLitePreferenceStore(db *sql.DB) *SQLitePreferenceStore {
	return &SQLitePreferenceStore{db: db}
}

func (s *SQLitePreferenceStore) Get(ctx context.Context, userID int64, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE user_id = ? AND key = ?`, userID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read preference %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLitePreferenceStore) Set(ctx context.Context, userID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO preferences (user_id, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write preference %q: %w", key, err)
	}
	return nil
}

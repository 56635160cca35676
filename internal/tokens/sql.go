package tokens

import (
	"database/sql"
	"errors"
	"fmt"
)

// SQLStore keeps the pair in the auth_tokens table created by the embedded migrations.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) AccessToken() (string, error) {
	return s.get(accessTokenKey)
}

func (s *SQLStore) RefreshToken() (string, error) {
	return s.get(refreshTokenKey)
}

func (s *SQLStore) SetTokens(access, refresh string) error {
	if err := validatePair(access, refresh); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO auth_tokens (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	for key, value := range map[string]string{accessTokenKey: access, refreshTokenKey: refresh} {
		if _, err := tx.Exec(query, key, value); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tokens: %w", err)
	}
	return nil
}

func (s *SQLStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM auth_tokens WHERE key IN (?, ?)", accessTokenKey, refreshTokenKey); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

func (s *SQLStore) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM auth_tokens WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Package tokens persists the access/refresh credential pair used by the API client.
//
// Backends:
//   - [MemoryStore] keeps the pair in process memory
//   - [FileStore] writes a TOML file, replaced atomically on every change
//   - [BoltStore] keeps both keys in a bbolt bucket
//   - [SQLStore] keeps both keys in the auth_tokens SQLite table
//
// Every backend writes the pair as a unit: readers observe either the old pair or the new one.
package tokens

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/tunedeck/internal/models"
	"github.com/desertthunder/tunedeck/internal/shared"
	"golang.org/x/oauth2"
)

const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
)

// Store persists the credential pair.
//
// Absent values are returned as the empty string.
type Store interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	SetTokens(access, refresh string) error
	Clear() error
}

// Open returns the Store selected by cfg.Store.
//
// db is only used by the sqlite backend and may be nil otherwise.
func Open(cfg shared.AuthConfig, db *sql.DB) (Store, error) {
	switch cfg.Store {
	case shared.StoreMemory:
		return NewMemoryStore(), nil
	case shared.StoreFile:
		return NewFileStore(cfg.Path)
	case shared.StoreBolt:
		return NewBoltStore(cfg.Path)
	case shared.StoreSQLite:
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite token store requires a database", shared.ErrInvalidConfig)
		}
		return NewSQLStore(db), nil
	default:
		return nil, fmt.Errorf("%w: unknown token store %q", shared.ErrInvalidConfig, cfg.Store)
	}
}

// Load reads both tokens from s.
func Load(s Store) (models.AuthTokens, error) {
	access, err := s.AccessToken()
	if err != nil {
		return models.AuthTokens{}, err
	}
	refresh, err := s.RefreshToken()
	if err != nil {
		return models.AuthTokens{}, err
	}
	return models.AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// OAuth2Token adapts the stored pair to an [oauth2.Token] with the Bearer type.
//
// It returns nil without error when no access token is stored.
func OAuth2Token(s Store) (*oauth2.Token, error) {
	pair, err := Load(s)
	if err != nil {
		return nil, err
	}
	if pair.Empty() {
		return nil, nil
	}
	return &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}

// validatePair enforces that an access token is always stored with a refresh token.
func validatePair(access, refresh string) error {
	if access == "" {
		return fmt.Errorf("%w: access token is empty", shared.ErrInvalidInput)
	}
	if refresh == "" {
		return fmt.Errorf("%w: access token without refresh token", shared.ErrInvalidInput)
	}
	return nil
}

package tokens

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/tunedeck/internal/shared"
	bolt "go.etcd.io/bbolt"
)

var authBucket = []byte("auth")

// BoltStore keeps the pair in a bbolt database file.
//
// The file is held open (and locked) until Close.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the bbolt file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	resolved, err := shared.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve token path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}

	db, err := bolt.Open(resolved, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open token database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(authBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create auth bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (b *BoltStore) AccessToken() (string, error) {
	return b.get(accessTokenKey)
}

func (b *BoltStore) RefreshToken() (string, error) {
	return b.get(refreshTokenKey)
}

func (b *BoltStore) SetTokens(access, refresh string) error {
	if err := validatePair(access, refresh); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(authBucket)
		if err := bucket.Put([]byte(accessTokenKey), []byte(access)); err != nil {
			return fmt.Errorf("store access token: %w", err)
		}
		if err := bucket.Put([]byte(refreshTokenKey), []byte(refresh)); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
		return nil
	})
}

func (b *BoltStore) Clear() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(authBucket)
		for _, key := range []string{accessTokenKey, refreshTokenKey} {
			if err := bucket.Delete([]byte(key)); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// Close releases the database file.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

func (b *BoltStore) get(key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bolt.Tx) error {
		// Get returns memory owned by the transaction; string() copies it
		if v := tx.Bucket(authBucket).Get([]byte(key)); v != nil {
			value = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

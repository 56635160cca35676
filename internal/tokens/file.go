package tokens

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/tunedeck/internal/models"
	"github.com/desertthunder/tunedeck/internal/shared"
)

// FileStore persists the pair as a TOML file readable only by the owner.
//
// Writes go to a temporary file in the same directory which is then renamed over the target.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore resolves path (expanding ~) and returns a store backed by it.
//
// The file is created lazily on the first SetTokens.
func NewFileStore(path string) (*FileStore, error) {
	resolved, err := shared.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve token path: %w", err)
	}
	return &FileStore{path: resolved}, nil
}

// Path returns the resolved file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) AccessToken() (string, error) {
	pair, err := f.read()
	return pair.AccessToken, err
}

func (f *FileStore) RefreshToken() (string, error) {
	pair, err := f.read()
	return pair.RefreshToken, err
}

func (f *FileStore) SetTokens(access, refresh string) error {
	if err := validatePair(access, refresh); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(models.AuthTokens{AccessToken: access, RefreshToken: refresh}); err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.toml")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write tokens: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (f *FileStore) read() (models.AuthTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pair models.AuthTokens
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return pair, nil
	}
	if err != nil {
		return pair, fmt.Errorf("read token file: %w", err)
	}

	if err := toml.Unmarshal(data, &pair); err != nil {
		return models.AuthTokens{}, fmt.Errorf("parse token file %s: %w", f.path, err)
	}
	return pair, nil
}

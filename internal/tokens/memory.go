package tokens

import (
	"sync"

	"github.com/desertthunder/tunedeck/internal/models"
)

// MemoryStore keeps the pair for the life of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	pair models.AuthTokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) AccessToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.AccessToken, nil
}

func (m *MemoryStore) RefreshToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.RefreshToken, nil
}

func (m *MemoryStore) SetTokens(access, refresh string) error {
	if err := validatePair(access, refresh); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = models.AuthTokens{AccessToken: access, RefreshToken: refresh}
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = models.AuthTokens{}
	return nil
}

package tokens

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/tunedeck/internal/shared"
)

// storeCase builds a fresh store and a function that reopens it against the same backing data.
type storeCase struct {
	name    string
	durable bool
	open    func(t *testing.T) (Store, func(t *testing.T) Store)
}

func storeCases() []storeCase {
	return []storeCase{
		{
			name: "memory",
			open: func(t *testing.T) (Store, func(t *testing.T) Store) {
				return NewMemoryStore(), nil
			},
		},
		{
			name:    "file",
			durable: true,
			open: func(t *testing.T) (Store, func(t *testing.T) Store) {
				path := filepath.Join(t.TempDir(), "tokens.toml")
				reopen := func(t *testing.T) Store {
					s, err := NewFileStore(path)
					if err != nil {
						t.Fatalf("failed to open file store: %v", err)
					}
					return s
				}
				return reopen(t), reopen
			},
		},
		{
			name:    "bolt",
			durable: true,
			open: func(t *testing.T) (Store, func(t *testing.T) Store) {
				path := filepath.Join(t.TempDir(), "tokens.db")
				var current *BoltStore
				reopen := func(t *testing.T) Store {
					if current != nil {
						current.Close()
					}
					s, err := NewBoltStore(path)
					if err != nil {
						t.Fatalf("failed to open bolt store: %v", err)
					}
					current = s
					return s
				}
				s := reopen(t)
				t.Cleanup(func() { current.Close() })
				return s, reopen
			},
		},
		{
			name:    "sqlite",
			durable: true,
			open: func(t *testing.T) (Store, func(t *testing.T) Store) {
				path := filepath.Join(t.TempDir(), "tunedeck.db")
				var dbs []func() error
				t.Cleanup(func() {
					for _, c := range dbs {
						c()
					}
				})
				reopen := func(t *testing.T) Store {
					db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: path, MaxOpenConns: 1})
					if err != nil {
						t.Fatalf("failed to open database: %v", err)
					}
					dbs = append(dbs, db.Close)
					return NewSQLStore(db)
				}
				return reopen(t), reopen
			},
		},
	}
}

func TestStores(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			t.Run("empty store returns no tokens", func(t *testing.T) {
				s, _ := sc.open(t)
				access, err := s.AccessToken()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				refresh, err := s.RefreshToken()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if access != "" || refresh != "" {
					t.Errorf("expected empty tokens, got %q/%q", access, refresh)
				}
			})

			t.Run("SetTokens then read", func(t *testing.T) {
				s, _ := sc.open(t)
				if err := s.SetTokens("a1", "r1"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				pair, err := Load(s)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if pair.AccessToken != "a1" || pair.RefreshToken != "r1" {
					t.Errorf("expected a1/r1, got %+v", pair)
				}

				if err := s.SetTokens("a2", "r2"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				pair, _ = Load(s)
				if pair.AccessToken != "a2" || pair.RefreshToken != "r2" {
					t.Errorf("expected overwrite to a2/r2, got %+v", pair)
				}
			})

			t.Run("rejects access token without refresh token", func(t *testing.T) {
				s, _ := sc.open(t)
				if err := s.SetTokens("a1", ""); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				if access, _ := s.AccessToken(); access != "" {
					t.Errorf("rejected write should not store anything, got %q", access)
				}
			})

			t.Run("Clear removes both tokens", func(t *testing.T) {
				s, _ := sc.open(t)
				if err := s.SetTokens("a1", "r1"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if err := s.Clear(); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				pair, _ := Load(s)
				if !pair.Empty() || pair.RefreshToken != "" {
					t.Errorf("expected cleared store, got %+v", pair)
				}
				if err := s.Clear(); err != nil {
					t.Errorf("clearing an empty store should succeed: %v", err)
				}
			})

			if !sc.durable {
				return
			}

			t.Run("survives reopen", func(t *testing.T) {
				s, reopen := sc.open(t)
				if err := s.SetTokens("persist-a", "persist-r"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				pair, err := Load(reopen(t))
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if pair.AccessToken != "persist-a" || pair.RefreshToken != "persist-r" {
					t.Errorf("expected persisted pair, got %+v", pair)
				}
			})
		})
	}
}

func TestStoreConcurrency(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetTokens("a", "r")
		}()
		go func() {
			defer wg.Done()
			pair, _ := Load(s)
			if pair.AccessToken != "" && pair.RefreshToken == "" {
				t.Error("observed access token without refresh token")
			}
		}()
	}
	wg.Wait()
}

func TestFileStore(t *testing.T) {
	t.Run("file is private", func(t *testing.T) {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "tokens.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.SetTokens("a", "r"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(s.Path())
		if err != nil {
			t.Fatalf("token file should exist: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("expected 0600 permissions, got %o", perm)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.toml")
		if err := os.WriteFile(path, []byte("access_token = "), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		s, _ := NewFileStore(path)
		if _, err := s.AccessToken(); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, err := Open(shared.AuthConfig{Store: shared.StoreMemory}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := s.(*MemoryStore); !ok {
			t.Errorf("expected *MemoryStore, got %T", s)
		}
	})

	t.Run("sqlite without database", func(t *testing.T) {
		if _, err := Open(shared.AuthConfig{Store: shared.StoreSQLite}, nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := Open(shared.AuthConfig{Store: "vault"}, nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestOAuth2Token(t *testing.T) {
	s := NewMemoryStore()

	tok, err := OAuth2Token(s)
	if err != nil || tok != nil {
		t.Fatalf("expected nil token for empty store, got %v, %v", tok, err)
	}

	s.SetTokens("abc", "def")
	tok, err = OAuth2Token(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	tok.SetAuthHeader(req)
	if got := req.Header.Get("Authorization"); got != "Bearer abc" {
		t.Errorf("expected Bearer abc, got %q", got)
	}
}

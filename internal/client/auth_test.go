package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/tunedeck/internal/shared"
	tu "github.com/desertthunder/tunedeck/internal/testing"
	"github.com/desertthunder/tunedeck/internal/tokens"
)

func TestAuth(t *testing.T) {
	t.Run("Login Stores Tokens", func(t *testing.T) {
		backend := tu.NewBackend(t)
		store := tokens.NewMemoryStore()
		c := newTestClient(t, backend.URL(), store)

		login, err := c.Login(context.Background(), "demo", "hunter2")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if login.User["username"] != "demo" {
			t.Errorf("expected user payload, got %#v", login.User)
		}

		pair, _ := tokens.Load(store)
		if pair.AccessToken != login.AccessToken || pair.RefreshToken != login.RefreshToken {
			t.Errorf("expected stored pair to match login, got %+v", pair)
		}
		if !c.Authenticated() {
			t.Error("expected client to be authenticated")
		}

		if _, err := c.Get(context.Background(), "/me", nil); err != nil {
			t.Errorf("expected authenticated call to succeed, got %v", err)
		}
	})

	t.Run("Login With Bad Credentials", func(t *testing.T) {
		backend := tu.NewBackend(t)
		expired := false
		c, _ := New(Options{BaseURL: backend.URL(), OnSessionExpired: func(error) { expired = true }})

		_, err := c.Login(context.Background(), "demo", "wrong")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			t.Fatalf("expected 401 APIError, got %v", err)
		}
		if apiErr.Message != "Invalid credentials" {
			t.Errorf("expected backend detail, got %q", apiErr.Message)
		}
		if expired {
			t.Error("a failed login must not be reported as session expiry")
		}
		if backend.Calls("/api/auth/refresh") != 0 {
			t.Error("login must not trigger a refresh")
		}
	})

	t.Run("Login Requires Credentials", func(t *testing.T) {
		c := newTestClient(t, "http://localhost:1", nil)
		if _, err := c.Login(context.Background(), "", "x"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Logout Clears Store", func(t *testing.T) {
		backend := tu.NewBackend(t)
		store := tokens.NewMemoryStore()
		c := newTestClient(t, backend.URL(), store)
		if _, err := c.Login(context.Background(), "demo", "hunter2"); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		if err := c.Logout(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.Authenticated() {
			t.Error("expected store to be cleared")
		}
		if backend.Calls("/api/auth/logout") != 1 {
			t.Error("expected logout endpoint to be called")
		}
	})

	t.Run("Logout Clears Store Even When Backend Fails", func(t *testing.T) {
		server := newStatusServer(t, http.StatusInternalServerError)
		store := tokens.NewMemoryStore()
		store.SetTokens("a", "r")

		err := newTestClient(t, server, store).Logout(context.Background())
		if StatusCode(err) != http.StatusInternalServerError {
			t.Errorf("expected backend error to be returned, got %v", err)
		}
		if pair, _ := tokens.Load(store); !pair.Empty() {
			t.Errorf("expected cleared store, got %+v", pair)
		}
	})

	t.Run("Explicit Refresh", func(t *testing.T) {
		backend := tu.NewBackend(t)
		access, refresh := backend.IssueTokens()
		store := tokens.NewMemoryStore()
		store.SetTokens(access, refresh)

		got, err := newTestClient(t, backend.URL(), store).Refresh(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got == access {
			t.Error("expected a new access token")
		}
		if stored, _ := store.AccessToken(); stored != got {
			t.Errorf("expected stored token %q, got %q", got, stored)
		}
	})

	t.Run("Explicit Refresh Without Session", func(t *testing.T) {
		backend := tu.NewBackend(t)
		_, err := newTestClient(t, backend.URL(), nil).Refresh(context.Background())
		if !IsSessionExpired(err) || !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected session expired with no refresh token, got %v", err)
		}
	})
}

func newStatusServer(t *testing.T, status int) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

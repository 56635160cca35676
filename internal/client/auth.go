package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/tunedeck/internal/shared"
	"github.com/desertthunder/tunedeck/internal/tokens"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	logoutPath  = "/auth/logout"
)

// LoginResponse is the body returned by POST /auth/login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type,omitempty"`
	User         map[string]any `json:"user,omitempty"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for a token pair and stores it.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", shared.ErrMissingArgument)
	}

	resp, err := c.Request(ctx, loginPath, &RequestOptions{
		Method:   http.MethodPost,
		Body:     map[string]string{"username": username, "password": password},
		SkipAuth: true,
	})
	if err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := resp.Decode(&login); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if login.AccessToken == "" || login.RefreshToken == "" {
		return nil, fmt.Errorf("%w: login response is missing tokens", shared.ErrAuthFailed)
	}

	if err := c.store.SetTokens(login.AccessToken, login.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store tokens: %w", err)
	}
	c.logger.Info("logged in", "user", username)
	return &login, nil
}

// Logout revokes the refresh token server-side and clears the store.
//
// The store is cleared even when the backend call fails; that failure is still returned.
func (c *Client) Logout(ctx context.Context) error {
	pair, err := tokens.Load(c.store)
	if err != nil {
		return err
	}

	var callErr error
	if pair.RefreshToken != "" {
		header := http.Header{}
		if pair.AccessToken != "" {
			header.Set("Authorization", "Bearer "+pair.AccessToken)
		}
		_, callErr = c.Request(ctx, logoutPath, &RequestOptions{
			Method:   http.MethodPost,
			Header:   header,
			Body:     map[string]string{"refresh_token": pair.RefreshToken},
			SkipAuth: true,
		})
		if callErr != nil {
			c.logger.Warn("logout request failed", "err", callErr)
		}
	}

	if err := c.store.Clear(); err != nil {
		return errors.Join(callErr, fmt.Errorf("failed to clear tokens: %w", err))
	}
	return callErr
}

// Authenticated reports whether an access token is stored.
func (c *Client) Authenticated() bool {
	access, err := c.store.AccessToken()
	return err == nil && access != ""
}

// Refresh exchanges the stored refresh token for a new access token.
//
// A failed refresh ends the session exactly like a failed transparent refresh.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	current, err := c.store.AccessToken()
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	return c.refresh(ctx, current, true)
}

// refresh replaces the stale access token. Concurrent callers holding the same stale token
// share one exchange, and a caller arriving after the token already changed reuses the new one
// unless force is set.
//
// The exchange ignores the caller's cancellation. A caller whose ctx ends stops waiting with ctx.Err().
func (c *Client) refresh(ctx context.Context, stale string, force bool) (string, error) {
	ch := c.refreshes.DoChan("refresh:"+stale, func() (any, error) {
		current, err := c.store.AccessToken()
		if err != nil {
			return "", fmt.Errorf("failed to read access token: %w", err)
		}
		if !force && current != "" && current != stale {
			c.logger.Debug("access token already rotated")
			return current, nil
		}

		refreshToken, err := c.store.RefreshToken()
		if err != nil {
			return "", fmt.Errorf("failed to read refresh token: %w", err)
		}
		if refreshToken == "" {
			return "", c.endSession(shared.ErrNoRefreshToken)
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		access, err := c.exchange(rctx, refreshToken)
		if err != nil {
			return "", c.endSession(err)
		}
		return access, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// exchange calls the refresh endpoint and stores the result. A rotated refresh token replaces the old one.
func (c *Client) exchange(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.Request(ctx, refreshPath, &RequestOptions{
		Method:   http.MethodPost,
		Body:     map[string]string{"refresh_token": refreshToken},
		SkipAuth: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	var out refreshResponse
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: response has no access token", shared.ErrRefreshFailed)
	}

	next := out.RefreshToken
	if next == "" {
		next = refreshToken
	}
	if err := c.store.SetTokens(out.AccessToken, next); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	c.logger.Info("access token refreshed", "rotated", next != refreshToken)
	return out.AccessToken, nil
}

// endSession clears the store and fires the session-expired hook.
func (c *Client) endSession(cause error) error {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("failed to clear tokens", "err", err)
	}

	err := fmt.Errorf("%w: %w", shared.ErrSessionExpired, cause)
	c.logger.Warn("session expired", "cause", cause)
	if c.onExpired != nil {
		c.onExpired(err)
	}
	return err
}

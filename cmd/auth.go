package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunedeck/internal/client"
	"github.com/desertthunder/tunedeck/internal/shared"
	"github.com/desertthunder/tunedeck/internal/tokens"
	"github.com/desertthunder/tunedeck/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with username and password and stores the returned pair.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	username := cmd.String("username")
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or TUNEDECK_PASSWORD is required", shared.ErrMissingArgument)
	}

	api, err := r.Client()
	if err != nil {
		return err
	}

	r.logger.Info("signing in", "username", username, "store", r.config.Auth.Store)

	login, err := api.Login(ctx, username, password)
	if err != nil {
		return err
	}

	name := username
	if u, ok := login.User["username"].(string); ok && u != "" {
		name = u
	}
	return r.writePlain("%s\n", ui.Success("✓ Logged in as "+name))
}

// AuthLogout revokes the session on the backend and always clears the local store.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	api, err := r.Client()
	if err != nil {
		return err
	}

	if err := api.Logout(ctx); err != nil {
		r.logger.Warn("backend logout failed, local tokens were cleared anyway", "error", err)
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthRefresh forces a token refresh.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	api, err := r.Client()
	if err != nil {
		return err
	}

	if _, err := api.Refresh(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Access token refreshed\n")
}

// AuthStatus reports the stored session and, unless --local, checks it against GET /me.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	api, err := r.Client()
	if err != nil {
		return err
	}

	pair, err := tokens.Load(api.Store())
	if err != nil {
		return fmt.Errorf("failed to read token store: %w", err)
	}

	r.writePlain("Backend: %s\n", r.config.Server.BaseURL)
	r.writePlain("Store:   %s\n", r.config.Auth.Store)

	if pair.Empty() {
		r.writePlain("Session: %s\n", ui.Failure("not logged in"))
		return r.writePlain("%s\n", ui.Hint("Run 'tunedeck auth login --username <you>' to sign in"))
	}

	if cmd.Bool("local") {
		return r.writePlain("Session: %s\n", ui.Success("tokens stored"))
	}

	resp, err := api.Get(ctx, "/me", nil)
	switch {
	case client.IsSessionExpired(err):
		return r.writePlain("Session: %s\n", ui.Failure("expired"))
	case err != nil:
		return err
	}

	user := "unknown user"
	if m, ok := resp.Data.(map[string]any); ok {
		if name, ok := m["username"].(string); ok && name != "" {
			user = name
		}
	}
	return r.writePlain("Session: %s\n", ui.Success("active ("+user+")"))
}

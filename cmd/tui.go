package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunedeck/internal/jobs"
	"github.com/desertthunder/tunedeck/internal/shared"
	"github.com/desertthunder/tunedeck/internal/ui"
)

// logToFile redirects logs to a temp file while the TUI owns the terminal.
// It must run before the client is built so every component picks up the file logger.
func (r *Runner) logToFile() (func(), error) {
	path := filepath.Join(os.TempDir(), "tunedeck", "tui.log")
	fileLogger, f, err := shared.NewFileLogger(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())

	previous := r.logger
	r.SetLogger(fileLogger)
	return func() {
		r.SetLogger(previous)
		f.Close()
	}, nil
}

// watchTUI follows a job in the interactive watch view.
func (r *Runner) watchTUI(ctx context.Context, w ui.Watcher, id int64, opts jobs.PollOptions) error {
	model := ui.NewWatchModel(ctx, w, id, opts)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	_, err := model.Result()
	return err
}

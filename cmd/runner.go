package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunedeck/internal/client"
	"github.com/desertthunder/tunedeck/internal/jobs"
	"github.com/desertthunder/tunedeck/internal/repositories"
	"github.com/desertthunder/tunedeck/internal/shared"
	"github.com/desertthunder/tunedeck/internal/tokens"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The token store, database and API client are opened on first use so that commands
// which need none of them (setup config) work without a reachable backend.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	store      tokens.Store
	db         *sql.DB
	api        *client.Client
	openURL    func(string) error
	closers    []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Store and DB override the configured backends.
	Store tokens.Store
	DB    *sql.DB
	// OpenURL opens the login page when the session expires; defaults to [shared.OpenBrowser].
	OpenURL func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
		db:         opts.DB,
		openURL:    opts.OpenURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, apiCommand, jobsCommand, searchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close releases the database and any store that holds a file lock.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// SetLogger replaces the logger, e.g. while a TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Database opens the configured SQLite database and runs pending migrations.
func (r *Runner) Database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	if r.config.Database.Path == "" {
		return nil, fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	r.closers = append(r.closers, db)
	return db, nil
}

// Store opens the configured token store.
func (r *Runner) Store() (tokens.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	var db *sql.DB
	if r.config.Auth.Store == shared.StoreSQLite {
		var err error
		if db, err = r.Database(); err != nil {
			return nil, err
		}
	}

	store, err := tokens.Open(r.config.Auth, db)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		r.closers = append(r.closers, c)
	}
	r.store = store
	return store, nil
}

// Client builds the authenticated API client from config.
func (r *Runner) Client() (*client.Client, error) {
	if r.api != nil {
		return r.api, nil
	}

	store, err := r.Store()
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if r.config.Client.RateLimit > 0 {
		burst := max(r.config.Client.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(r.config.Client.RateLimit), burst)
	}

	api, err := client.New(client.Options{
		BaseURL:          r.config.Server.BaseURL,
		HTTPClient:       r.httpClient,
		Store:            store,
		Logger:           shared.WithLogger(r.logger, "component", "client"),
		Limiter:          limiter,
		UserAgent:        r.config.Client.UserAgent,
		OnSessionExpired: r.sessionExpired,
	})
	if err != nil {
		return nil, err
	}
	r.api = api
	return api, nil
}

// Poller builds a job poller with the configured interval and timeout.
func (r *Runner) Poller() (*jobs.Poller, error) {
	api, err := r.Client()
	if err != nil {
		return nil, err
	}
	logger := shared.WithLogger(r.logger, "component", "jobs")
	return jobs.NewPoller(api, logger, r.config.Jobs.Interval(), r.config.Jobs.Timeout()), nil
}

// History returns the job history repository, or nil when no database is available.
func (r *Runner) History() *repositories.JobRepository {
	db, err := r.Database()
	if err != nil {
		r.logger.Debug("job history disabled", "error", err)
		return nil
	}
	return repositories.NewJobRepository(db)
}

// sessionExpired is the client's hook for a refresh that could not be completed.
func (r *Runner) sessionExpired(err error) {
	r.logger.Warn("session expired, run `tunedeck auth login` to sign in again", "error", err)

	if !r.config.Server.OpenLogin || r.config.Server.LoginURL == "" {
		return
	}
	if err := r.openURL(r.config.Server.LoginURL); err != nil {
		r.logger.Warn("failed to open login page", "url", r.config.Server.LoginURL, "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = shared.MarshalJSON(data)
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

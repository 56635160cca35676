package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tunedeck/internal/formatter"
	"github.com/desertthunder/tunedeck/internal/jobs"
	"github.com/desertthunder/tunedeck/internal/models"
	"github.com/desertthunder/tunedeck/internal/repositories"
	"github.com/desertthunder/tunedeck/internal/shared"
	"github.com/desertthunder/tunedeck/internal/ui"
	"github.com/urfave/cli/v3"
)

// historyEntry is the JSON shape of `jobs history --json`.
type historyEntry struct {
	JobID      int64      `json:"job_id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"last_error,omitempty"`
	ObservedAt time.Time  `json:"observed_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// JobsEnqueue submits a job and optionally follows it.
func (r *Runner) JobsEnqueue(ctx context.Context, cmd *cli.Command) error {
	jobType := strings.TrimSpace(cmd.String("type"))
	payload := cmd.String("payload")
	if !json.Valid([]byte(payload)) {
		return fmt.Errorf("%w: payload is not valid JSON", shared.ErrInvalidInput)
	}

	watch := cmd.Bool("watch")
	if watch && cmd.Bool("tui") {
		restore, err := r.logToFile()
		if err != nil {
			return err
		}
		defer restore()
	}

	poller, err := r.Poller()
	if err != nil {
		return err
	}

	out, err := poller.Enqueue(ctx, jobs.EnqueueRequest{
		Type:        jobType,
		Payload:     json.RawMessage(payload),
		MaxAttempts: cmd.Int("max-attempts"),
	})
	if err != nil {
		return err
	}

	history := r.History()
	r.record(history, &models.Job{ID: out.JobID, Type: jobType, Status: models.JobPending, MaxAttempts: cmd.Int("max-attempts")})

	if !watch {
		return r.writePlain("✓ Enqueued job #%d (%s)\n", out.JobID, jobType)
	}
	r.logger.Info("enqueued job", "id", out.JobID, "type", jobType)
	return r.follow(ctx, poller, out.JobID, cmd, history)
}

// JobsStatus fetches a job once.
func (r *Runner) JobsStatus(ctx context.Context, cmd *cli.Command) error {
	id, err := parseJobID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	poller, err := r.Poller()
	if err != nil {
		return err
	}

	job, err := poller.Get(ctx, id)
	if err != nil {
		return err
	}
	r.record(r.History(), job)

	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}
	return r.writeBytes(formatter.JobToText(job, time.Now()))
}

// JobsWatch polls an existing job until it settles.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	id, err := parseJobID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("tui") {
		restore, err := r.logToFile()
		if err != nil {
			return err
		}
		defer restore()
	}

	poller, err := r.Poller()
	if err != nil {
		return err
	}
	return r.follow(ctx, poller, id, cmd, r.History())
}

// JobsHistory lists locally recorded jobs, newest first.
func (r *Runner) JobsHistory(ctx context.Context, cmd *cli.Command) error {
	history := r.History()
	if history == nil {
		return fmt.Errorf("%w: job history needs database.path", shared.ErrMissingConfig)
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		if !models.JobStatus(status).Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
		}
		criteria["status"] = models.JobStatus(status)
	}

	records, err := history.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, historyEntry{
				JobID:      rec.JobID(),
				Type:       rec.Type(),
				Status:     rec.Status().String(),
				Attempts:   rec.Attempts(),
				LastError:  rec.LastError(),
				ObservedAt: rec.ObservedAt(),
				FinishedAt: rec.FinishedAt(),
			})
		}
		return r.writeJSON(entries, true)
	}
	return r.writeBytes(formatter.HistoryToText(records))
}

// follow streams status transitions for id, or hands over to the TUI with --tui.
func (r *Runner) follow(ctx context.Context, poller *jobs.Poller, id int64, cmd *cli.Command, history *repositories.JobRepository) error {
	opts := jobs.PollOptions{
		Interval: cmd.Duration("interval"),
		Timeout:  cmd.Duration("timeout"),
		OnUpdate: func(job *models.Job) { r.record(history, job) },
	}

	if cmd.Bool("tui") {
		return r.watchTUI(ctx, poller, id, opts)
	}

	var (
		last  models.JobStatus
		final jobs.Update
	)
	for update := range poller.Watch(ctx, id, opts) {
		if update.Job != nil && update.Job.Status != last {
			last = update.Job.Status
			r.writePlain("%s  job #%d  %s\n", time.Now().Format(time.TimeOnly), id, ui.Badge(last))
		}
		final = update
	}

	if final.Job != nil {
		r.writePlainln("%s", strings.TrimRight(string(formatter.JobToText(final.Job, time.Now())), "\n"))
	}
	if jobs.IsTimeout(final.Err) {
		r.logger.Warn("stopped waiting, the job is still running on the backend", "id", id)
	}
	return final.Err
}

// record stores an observation when job history is enabled; failures only warn.
func (r *Runner) record(history *repositories.JobRepository, job *models.Job) {
	if history == nil || job == nil {
		return
	}
	if _, err := history.Record(job); err != nil {
		r.logger.Warn("failed to record job", "id", job.ID, "error", err)
	}
}

func parseJobID(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: job id %q", shared.ErrInvalidArgument, s)
	}
	return id, nil
}

// Package jobs enqueues backend jobs and follows them to a terminal state.
//
// [Poller.Poll] blocks until the job is done, failed, cancelled, or the poll times out.
// [Poller.Watch] runs the same loop in the background and streams every observed state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunedeck/internal/client"
	"github.com/desertthunder/tunedeck/internal/models"
	"github.com/desertthunder/tunedeck/internal/shared"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 5 * time.Minute
)

// PollOptions tunes a single poll. Zero durations select the poller defaults.
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	// OnUpdate receives every fetched state, terminal states included.
	OnUpdate func(*models.Job)
}

// EnqueueRequest is the body of POST /jobs/enqueue.
type EnqueueRequest struct {
	Type        string `json:"type"`
	Payload     any    `json:"payload"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
}

// EnqueueResponse is returned by POST /jobs/enqueue.
type EnqueueResponse struct {
	OK    bool  `json:"ok"`
	JobID int64 `json:"job_id"`
}

// JobFailedError reports a job that reached failed or cancelled.
//
// Its message is the job's last_error.
type JobFailedError struct {
	JobID  int64
	Status models.JobStatus
	Reason string
}

func (e *JobFailedError) Error() string {
	return e.Reason
}

// Is matches [shared.ErrJobFailed] or [shared.ErrJobCancelled] by status.
func (e *JobFailedError) Is(target error) bool {
	switch target {
	case shared.ErrJobFailed:
		return e.Status == models.JobFailed
	case shared.ErrJobCancelled:
		return e.Status == models.JobCancelled
	}
	return false
}

// Poller talks to the job endpoints through an authenticated [client.Requester].
type Poller struct {
	requester client.Requester
	logger    *log.Logger
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
}

// NewPoller creates a Poller. Non-positive defaults fall back to 2s and 5m.
func NewPoller(r client.Requester, logger *log.Logger, interval, timeout time.Duration) *Poller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poller{requester: r, logger: logger, interval: interval, timeout: timeout, now: time.Now}
}

// Get fetches the current state of a job.
func (p *Poller) Get(ctx context.Context, id int64) (*models.Job, error) {
	resp, err := p.requester.Request(ctx, "/jobs/"+strconv.FormatInt(id, 10), &client.RequestOptions{Method: http.MethodGet})
	if err != nil {
		return nil, err
	}

	var job models.Job
	if err := resp.Decode(&job); err != nil {
		return nil, fmt.Errorf("job %d: %w", id, err)
	}
	return &job, nil
}

// Enqueue submits a job and returns its id.
func (p *Poller) Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResponse, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("%w: job type", shared.ErrMissingArgument)
	}
	if req.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w: max attempts must not be negative", shared.ErrInvalidArgument)
	}

	resp, err := p.requester.Request(ctx, "/jobs/enqueue", &client.RequestOptions{Method: http.MethodPost, Body: req})
	if err != nil {
		return nil, err
	}

	var out EnqueueResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if !out.OK || out.JobID <= 0 {
		return nil, fmt.Errorf("%w: enqueue was not acknowledged", shared.ErrAPIRequest)
	}

	p.logger.Info("job enqueued", "id", out.JobID, "type", req.Type)
	return &out, nil
}

// Poll fetches the job every interval until it is terminal or the timeout elapses.
//
// Fetch errors end the poll immediately. A failed or cancelled job returns *[JobFailedError];
// a timeout returns an error wrapping [shared.ErrTimeout] and leaves the job running server-side.
func (p *Poller) Poll(ctx context.Context, id int64, opts PollOptions) (*models.Job, error) {
	interval, timeout := p.durations(opts)
	start := p.now()

	var last models.JobStatus
	for {
		job, err := p.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if job.Status != last {
			p.logger.Debug("job status", "id", id, "status", job.Status, "attempts", job.Attempts)
			last = job.Status
		}
		if opts.OnUpdate != nil {
			opts.OnUpdate(job)
		}

		if err := terminalError(job); err != nil || job.Status == models.JobDone {
			return job, err
		}

		if elapsed := p.now().Sub(start); elapsed > timeout {
			return job, fmt.Errorf("%w: job %d still %s after %s", shared.ErrTimeout, id, job.Status, elapsed.Round(time.Millisecond))
		}

		wait := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			wait.Stop()
			return job, ctx.Err()
		case <-wait.C:
		}
	}
}

// EnqueueAndPoll submits a job and waits for it.
func (p *Poller) EnqueueAndPoll(ctx context.Context, req EnqueueRequest, opts PollOptions) (*models.Job, error) {
	out, err := p.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Poll(ctx, out.JobID, opts)
}

func (p *Poller) durations(opts PollOptions) (time.Duration, time.Duration) {
	interval, timeout := opts.Interval, opts.Timeout
	if interval <= 0 {
		interval = p.interval
	}
	if timeout <= 0 {
		timeout = p.timeout
	}
	return interval, timeout
}

// terminalError converts failed and cancelled states into a *JobFailedError.
func terminalError(job *models.Job) error {
	if job.Status != models.JobFailed && job.Status != models.JobCancelled {
		return nil
	}

	reason := job.ErrorMessage()
	if reason == "" {
		reason = "job " + job.Status.String()
	}
	return &JobFailedError{JobID: job.ID, Status: job.Status, Reason: reason}
}

// IsTimeout reports whether err came from a poll that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, shared.ErrTimeout)
}

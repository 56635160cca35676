package models

import (
	"fmt"
	"time"
)

// JobRecord is a locally persisted snapshot of a job this client enqueued or watched.
type JobRecord struct {
	id          string
	sequence    int
	jobID       int64
	jobType     string
	status      JobStatus
	attempts    int
	maxAttempts int
	lastError   string
	observedAt  time.Time
	finishedAt  *time.Time
	createdAt   time.Time
}

// NewJobRecord snapshots job as observed at the given time.
func NewJobRecord(job *Job, observedAt time.Time) *JobRecord {
	r := &JobRecord{createdAt: observedAt}
	r.Observe(job, observedAt)
	return r
}

// Observe copies the mutable fields of job into the record.
func (r *JobRecord) Observe(job *Job, at time.Time) {
	r.jobID = job.ID
	r.jobType = job.Type
	r.status = job.Status
	r.attempts = job.Attempts
	r.maxAttempts = job.MaxAttempts
	r.lastError = job.ErrorMessage()
	r.observedAt = at
	r.finishedAt = nil
	if job.FinishedAt != nil && !job.FinishedAt.IsZero() {
		finished := job.FinishedAt.Time
		r.finishedAt = &finished
	}
}

func (r *JobRecord) ID() string             { return r.id }
func (r *JobRecord) SetID(id string)        { r.id = id }
func (r *JobRecord) Sequence() int          { return r.sequence }
func (r *JobRecord) SetSequence(seq int)    { r.sequence = seq }
func (r *JobRecord) JobID() int64           { return r.jobID }
func (r *JobRecord) Type() string           { return r.jobType }
func (r *JobRecord) Status() JobStatus      { return r.status }
func (r *JobRecord) Attempts() int          { return r.attempts }
func (r *JobRecord) MaxAttempts() int       { return r.maxAttempts }
func (r *JobRecord) LastError() string      { return r.lastError }
func (r *JobRecord) ObservedAt() time.Time  { return r.observedAt }
func (r *JobRecord) FinishedAt() *time.Time { return r.finishedAt }
func (r *JobRecord) CreatedAt() time.Time   { return r.createdAt }
func (r *JobRecord) UpdatedAt() time.Time   { return r.observedAt }

// Validate checks the record before it is written.
func (r *JobRecord) Validate() error {
	if r.jobID <= 0 {
		return fmt.Errorf("job id must be positive, got %d", r.jobID)
	}
	if r.jobType == "" {
		return fmt.Errorf("job type is required")
	}
	if !r.status.Valid() {
		return fmt.Errorf("unknown job status %q", r.status)
	}
	return nil
}

// RestoreJobRecord rebuilds a record from stored columns.
func RestoreJobRecord(id string, sequence int, jobID int64, jobType string, status JobStatus,
	attempts, maxAttempts int, lastError string, observedAt time.Time, finishedAt *time.Time) *JobRecord {
	return &JobRecord{
		id:          id,
		sequence:    sequence,
		jobID:       jobID,
		jobType:     jobType,
		status:      status,
		attempts:    attempts,
		maxAttempts: maxAttempts,
		lastError:   lastError,
		observedAt:  observedAt,
		finishedAt:  finishedAt,
		createdAt:   observedAt,
	}
}

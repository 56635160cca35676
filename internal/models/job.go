package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a backend job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status can no longer change.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobDone, JobFailed, JobCancelled:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobRunning, JobDone, JobFailed, JobCancelled:
		return true
	}
	return false
}

func (s JobStatus) String() string {
	return string(s)
}

// Job is the backend representation of an asynchronous unit of work.
type Job struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Status      JobStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	LastError   *string         `json:"last_error,omitempty"`
	CreatedAt   *Timestamp      `json:"created_at,omitempty"`
	StartedAt   *Timestamp      `json:"started_at,omitempty"`
	FinishedAt  *Timestamp      `json:"finished_at,omitempty"`
}

// ErrorMessage returns last_error or the empty string.
func (j *Job) ErrorMessage() string {
	if j == nil || j.LastError == nil {
		return ""
	}
	return *j.LastError
}

// Elapsed returns the run time of the job: started to finished, or started to now while running.
func (j *Job) Elapsed(now time.Time) time.Duration {
	if j == nil || j.StartedAt == nil || j.StartedAt.IsZero() {
		return 0
	}
	end := now
	if j.FinishedAt != nil && !j.FinishedAt.IsZero() {
		end = j.FinishedAt.Time
	}
	if end.Before(j.StartedAt.Time) {
		return 0
	}
	return end.Sub(j.StartedAt.Time)
}

// timestampLayouts are tried in order; the backend may omit the zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp decodes backend time values. Zone-less values are read as UTC.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		return nil
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

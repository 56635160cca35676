package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestJobStatus(t *testing.T) {
	tc := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobPending, false},
		{JobRunning, false},
		{JobDone, true},
		{JobFailed, true},
		{JobCancelled, true},
	}

	for _, tt := range tc {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if !tt.status.Valid() {
				t.Errorf("%s should be valid", tt.status)
			}
		})
	}

	if JobStatus("queued").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestJobDecode(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		data := `{
			"id": 7,
			"type": "import_library",
			"status": "failed",
			"attempts": 3,
			"max_attempts": 3,
			"payload": {"playlist": "abc"},
			"result": null,
			"last_error": "upstream 503",
			"created_at": "2024-05-01T10:00:00.123456",
			"started_at": "2024-05-01T10:00:01Z",
			"finished_at": "2024-05-01 10:00:31"
		}`

		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if job.ID != 7 || job.Status != JobFailed {
			t.Errorf("unexpected job %+v", job)
		}
		if job.ErrorMessage() != "upstream 503" {
			t.Errorf("expected last error, got %q", job.ErrorMessage())
		}
		if job.CreatedAt == nil || job.CreatedAt.Nanosecond() != 123456000 {
			t.Errorf("expected fractional created_at, got %v", job.CreatedAt)
		}
		if got := job.Elapsed(time.Now()); got != 30*time.Second {
			t.Errorf("expected 30s elapsed, got %v", got)
		}
	})

	t.Run("null timestamps", func(t *testing.T) {
		var job Job
		if err := json.Unmarshal([]byte(`{"id":1,"type":"x","status":"pending","started_at":null}`), &job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.StartedAt != nil {
			t.Errorf("expected nil started_at, got %v", job.StartedAt)
		}
		if job.Elapsed(time.Now()) != 0 {
			t.Error("pending job should have no elapsed time")
		}
		if job.ErrorMessage() != "" {
			t.Error("expected empty error message")
		}
	})

	t.Run("bad timestamp", func(t *testing.T) {
		var job Job
		if err := json.Unmarshal([]byte(`{"created_at":"yesterday"}`), &job); err == nil {
			t.Error("expected error for unparseable timestamp")
		}
	})
}

func TestJobRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reason := "boom"
	job := &Job{ID: 3, Type: "sync", Status: JobFailed, Attempts: 1, MaxAttempts: 2, LastError: &reason}

	record := NewJobRecord(job, now)
	if err := record.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if record.LastError() != "boom" || record.UpdatedAt() != now {
		t.Errorf("unexpected record %+v", record)
	}

	t.Run("invalid", func(t *testing.T) {
		bad := NewJobRecord(&Job{ID: 0, Type: "sync", Status: JobDone}, now)
		if err := bad.Validate(); err == nil {
			t.Error("expected error for zero job id")
		}

		bad = NewJobRecord(&Job{ID: 1, Type: "sync", Status: "queued"}, now)
		if err := bad.Validate(); err == nil {
			t.Error("expected error for unknown status")
		}
	})
}

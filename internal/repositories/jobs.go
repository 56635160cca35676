package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunedeck/internal/models"
	"github.com/desertthunder/tunedeck/internal/shared"
)

const jobColumns = `id, sequence, job_id, type, status, attempts, max_attempts, last_error, observed_at, finished_at`

// JobRepository implements models.Repository[*models.JobRecord] over the job_history table.
//
// One row is kept per backend job id; later observations overwrite earlier ones.
type JobRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db, now: time.Now}
}

// Create inserts a new record with a generated ID and sequence
func (r *JobRepository) Create(record *models.JobRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "job_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	record.SetID(shared.GenerateID())
	record.SetSequence(sequence)

	query := `INSERT INTO job_history (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		record.ID(),
		record.Sequence(),
		record.JobID(),
		record.Type(),
		string(record.Status()),
		record.Attempts(),
		record.MaxAttempts(),
		nullString(record.LastError()),
		record.ObservedAt(),
		nullTime(record.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job record: %w", err)
	}

	return nil
}

// Get retrieves a record by its local ID
func (r *JobRepository) Get(id string) (*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM job_history WHERE id = ?`
	return scanJobRecord(r.db.QueryRow(query, id))
}

// GetByJobID retrieves the record for a backend job id
func (r *JobRepository) GetByJobID(jobID int64) (*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM job_history WHERE job_id = ?`
	return scanJobRecord(r.db.QueryRow(query, jobID))
}

// Update overwrites the observed state of an existing record
func (r *JobRepository) Update(record *models.JobRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE job_history
		SET type = ?, status = ?, attempts = ?, max_attempts = ?, last_error = ?, observed_at = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		record.Type(),
		string(record.Status()),
		record.Attempts(),
		record.MaxAttempts(),
		nullString(record.LastError()),
		record.ObservedAt(),
		nullTime(record.FinishedAt()),
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update job record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: job record %s", shared.ErrNotFound, record.ID())
	}

	return nil
}

// Delete removes a record by its local ID
func (r *JobRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM job_history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: job record %s", shared.ErrNotFound, id)
	}

	return nil
}

// List returns records newest first.
//
// Supported criteria: "status" (string or [models.JobStatus]), "type" (string) and "limit" (int).
func (r *JobRepository) List(criteria map[string]any) ([]*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM job_history WHERE 1 = 1`
	args := []any{}

	switch status := criteria["status"].(type) {
	case models.JobStatus:
		if status != "" {
			query += " AND status = ?"
			args = append(args, string(status))
		}
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	}

	if jobType, ok := criteria["type"].(string); ok && jobType != "" {
		query += " AND type = ?"
		args = append(args, jobType)
	}

	query += " ORDER BY observed_at DESC, sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job records: %w", err)
	}
	defer rows.Close()

	var records []*models.JobRecord
	for rows.Next() {
		record, err := scanJobRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Record stores the latest observation of job, creating the row on first sight.
func (r *JobRepository) Record(job *models.Job) (*models.JobRecord, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: nil job", shared.ErrInvalidInput)
	}
	now := r.now()

	existing, err := r.GetByJobID(job.ID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		record := models.NewJobRecord(job, now)
		if err := r.Create(record); err != nil {
			return nil, err
		}
		return record, nil
	case err != nil:
		return nil, err
	}

	existing.Observe(job, now)
	if err := r.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanJobRecord scans a [sql.Row] or the current row of [sql.Rows]
func scanJobRecord(row scanner) (*models.JobRecord, error) {
	var (
		id          string
		sequence    int
		jobID       int64
		jobType     string
		status      string
		attempts    int
		maxAttempts int
		lastError   sql.NullString
		observedAt  time.Time
		finishedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &jobID, &jobType, &status, &attempts, &maxAttempts, &lastError, &observedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job record", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job record: %w", err)
	}

	var finished *time.Time
	if finishedAt.Valid {
		finished = &finishedAt.Time
	}

	return models.RestoreJobRecord(id, sequence, jobID, jobType, models.JobStatus(status),
		attempts, maxAttempts, lastError.String, observedAt, finished), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"bitwash/domain/core"
	"bitwash/domain/job"
	"bitwash/ports"
)

// jobRepository implements the JobRepository interface
type jobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sqlx.DB) ports.JobRepository {
	return &jobRepository{db: db}
}

// Create inserts a new job record
func (r *jobRepository) Create(ctx context.Context, j *job.Job) error {
	query := `INSERT INTO jobs (
		id, status, filename, input_path, output_path, chunk_size,
		rounds_run, bits_in, bits_out, chunks_tested, error_message, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
	)`

	_, err := r.db.ExecContext(ctx, query,
		j.ID, j.Status, j.Filename, j.InputPath, j.OutputPath, j.ChunkSize,
		j.RoundsRun, j.BitsIn, j.BitsOut, j.ChunksTested, j.ErrorMessage, j.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its ID
func (r *jobRepository) GetByID(ctx context.Context, id core.JobID) (*job.Job, error) {
	query := `SELECT
		id, status, filename, input_path, output_path, chunk_size,
		rounds_run, bits_in, bits_out, chunks_tested,
		COALESCE(error_message, '') as error_message,
		created_at, started_at, completed_at
	FROM jobs WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// Update persists mutable job fields
func (r *jobRepository) Update(ctx context.Context, j *job.Job) error {
	query := `UPDATE jobs SET
		status = $2, rounds_run = $3, bits_in = $4, bits_out = $5,
		chunks_tested = $6, error_message = $7, started_at = $8, completed_at = $9
	WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		j.ID, j.Status, j.RoundsRun, j.BitsIn, j.BitsOut,
		j.ChunksTested, j.ErrorMessage, tsOrNil(j.StartedAt), tsOrNil(j.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrJobNotFound
	}
	return nil
}

// List returns jobs ordered by creation time, newest first
func (r *jobRepository) List(ctx context.Context, limit, offset int) ([]*job.Job, error) {
	query := `SELECT
		id, status, filename, input_path, output_path, chunk_size,
		rounds_run, bits_in, bits_out, chunks_tested,
		COALESCE(error_message, '') as error_message,
		created_at, started_at, completed_at
	FROM jobs
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*job.Job, error) {
	var j job.Job
	var createdAt time.Time
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.Status, &j.Filename, &j.InputPath, &j.OutputPath, &j.ChunkSize,
		&j.RoundsRun, &j.BitsIn, &j.BitsOut, &j.ChunksTested,
		&j.ErrorMessage, &createdAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	j.CreatedAt = core.NewTimestamp(createdAt)
	if startedAt.Valid {
		ts := core.NewTimestamp(startedAt.Time)
		j.StartedAt = &ts
	}
	if completedAt.Valid {
		ts := core.NewTimestamp(completedAt.Time)
		j.CompletedAt = &ts
	}
	return &j, nil
}

func tsOrNil(t *core.Timestamp) interface{} {
	if t == nil {
		return nil
	}
	return t.Time()
}

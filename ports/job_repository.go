package ports

import (
	"context"

	"bitwash/domain/core"
	"bitwash/domain/job"
)

// JobRepository persists sanitization job records.
type JobRepository interface {
	Create(ctx context.Context, j *job.Job) error
	GetByID(ctx context.Context, id core.JobID) (*job.Job, error)
	Update(ctx context.Context, j *job.Job) error
	List(ctx context.Context, limit, offset int) ([]*job.Job, error)
}

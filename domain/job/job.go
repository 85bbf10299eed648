package job

import (
	"bitwash/domain/core"
)

// Status tracks a sanitization job through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPrecheck  Status = "precheck"
	StatusTesting   Status = "testing"
	StatusCompleted Status = "completed"
	StatusEmpty     Status = "empty"   // no chunk survived; nothing to download
	StatusGaveUp    Status = "gave_up" // round limit reached before convergence
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusEmpty, StatusGaveUp, StatusFailed:
		return true
	}
	return false
}

// Job is the persistent record of one sanitization run.
type Job struct {
	ID       core.JobID `db:"id" json:"job_id"`
	Status   Status     `db:"status" json:"status"`
	Filename string     `db:"filename" json:"filename"`

	InputPath  string `db:"input_path" json:"-"`
	OutputPath string `db:"output_path" json:"-"`

	ChunkSize    int `db:"chunk_size" json:"chunk_size"`
	RoundsRun    int `db:"rounds_run" json:"rounds_run"`
	BitsIn       int `db:"bits_in" json:"bits_in"`
	BitsOut      int `db:"bits_out" json:"bits_out"`
	ChunksTested int `db:"chunks_tested" json:"chunks_tested"`

	ErrorMessage string `db:"error_message" json:"error,omitempty"`

	CreatedAt   core.Timestamp  `db:"created_at" json:"created_at"`
	StartedAt   *core.Timestamp `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *core.Timestamp `db:"completed_at" json:"completed_at,omitempty"`
}

// New creates a pending job for an uploaded file.
func New(filename, inputPath, outputPath string, chunkSize int) *Job {
	return &Job{
		ID:         core.JobID(core.NewID()),
		Status:     StatusPending,
		Filename:   filename,
		InputPath:  inputPath,
		OutputPath: outputPath,
		ChunkSize:  chunkSize,
		CreatedAt:  core.Now(),
	}
}

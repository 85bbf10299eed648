package stage

import (
	"bitwash/domain/bits"
	"bitwash/domain/core"
	"bitwash/domain/verdict"
)

// StageName labels a stage in the pipeline
type StageName string

const (
	StagePrecheck StageName = "precheck"
	StageFullTest StageName = "full_test"
)

// Config defines one stage: how to chunk the input and which tests the
// oracle runs on each chunk.
type Config struct {
	Name      StageName          `json:"name"`
	ChunkSize int                `json:"chunk_size"`
	Tests     []verdict.TestName `json:"tests"`
}

// Validate checks the stage configuration
func (c Config) Validate() error {
	if c.Name == "" {
		return core.NewValidationError("stage", "name cannot be empty")
	}
	if c.ChunkSize <= 0 {
		return core.NewValidationError("chunk_size", "must be positive")
	}
	if len(c.Tests) == 0 {
		return core.NewValidationError("tests", "must request at least one test")
	}
	return nil
}

// Outcome is the result of running one stage over one bit sequence:
// the per-chunk verdicts and the survivors concatenated in original
// chunk order. Survivors are strictly no longer than the input.
type Outcome struct {
	Stage      StageName              `json:"stage"`
	ChunkCount int                    `json:"chunk_count"`
	PassCount  int                    `json:"pass_count"`
	Verdicts   []verdict.ChunkVerdict `json:"verdicts"`
	Survivors  bits.Sequence          `json:"-"`
	DurationMs int64                  `json:"duration_ms"`
}

// AllPassed reports terminal success for a convergence round: every
// chunk passed and there was at least one chunk.
func (o Outcome) AllPassed() bool {
	return o.ChunkCount > 0 && o.PassCount == o.ChunkCount
}

// NonePassed reports a wiped-out round: chunks were tested, none survived.
func (o Outcome) NonePassed() bool {
	return o.ChunkCount > 0 && o.PassCount == 0
}

// RoundReport records one full-test round inside the convergence loop.
// Rounds are numbered from 1; a round's survivors become the next
// round's input.
type RoundReport struct {
	Round   int     `json:"round"`
	Outcome Outcome `json:"outcome"`
	BitsIn  int     `json:"bits_in"`
	BitsOut int     `json:"bits_out"`
}

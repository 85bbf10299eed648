package api

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"bitwash/app"
	"bitwash/domain/core"
	"bitwash/domain/job"
	"bitwash/domain/stage"
)

// processJob runs the pipeline for one uploaded job and records every
// transition. Runs on its own goroutine; the server's base context is
// the cancellation root.
func (s *Server) processJob(j *job.Job) {
	ctx := s.baseCtx

	data, err := os.ReadFile(j.InputPath)
	if err != nil {
		s.finishJob(ctx, j, job.StatusFailed, core.ErrInvalidInput.Error()+": "+err.Error())
		return
	}

	now := core.Now()
	j.StartedAt = &now
	j.Status = job.StatusPrecheck
	s.saveJob(ctx, j)

	pipeline := s.newPipeline()
	pipeline.OnPrecheck = func(outcome stage.Outcome) {
		j.Status = job.StatusTesting
		j.ChunksTested += outcome.ChunkCount
		s.saveJob(ctx, j)
	}
	pipeline.OnRound = func(report stage.RoundReport) {
		j.Status = job.StatusTesting
		j.RoundsRun = report.Round
		j.ChunksTested += report.Outcome.ChunkCount
		s.saveJob(ctx, j)
	}

	result, err := pipeline.Sanitize(ctx, data)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			s.finishJob(ctx, j, job.StatusFailed, core.ErrRunCancelled.Error())
		case errors.Is(err, core.ErrOracleUnavailable):
			s.finishJob(ctx, j, job.StatusFailed, err.Error())
		default:
			s.finishJob(ctx, j, job.StatusFailed, err.Error())
		}
		return
	}

	j.BitsIn = result.BitsIn
	j.BitsOut = result.BitsOut
	j.RoundsRun = len(result.Rounds)

	s.writeWorkbook(j, result)

	switch result.State {
	case app.StateConverged:
		// The artifact keeps the original ASCII bit-string format.
		if err := os.WriteFile(j.OutputPath, []byte(result.Output.ASCII()), 0o644); err != nil {
			s.finishJob(ctx, j, job.StatusFailed, "failed to write output: "+err.Error())
			return
		}
		s.finishJob(ctx, j, job.StatusCompleted, "")
	case app.StateEmpty:
		s.finishJob(ctx, j, job.StatusEmpty, "")
	case app.StateGaveUp:
		s.finishJob(ctx, j, job.StatusGaveUp, "round limit reached before convergence")
	default:
		s.finishJob(ctx, j, job.StatusFailed, "unknown pipeline state")
	}
}

func (s *Server) writeWorkbook(j *job.Job, result *app.SanitizeResult) {
	path := filepath.Join(filepath.Dir(j.OutputPath), "report.xlsx")
	if err := s.reports.Write(path, result.Precheck, result.Rounds); err != nil {
		log.Printf("job %s: failed to write report workbook: %v", j.ID, err)
	}
}

func (s *Server) finishJob(ctx context.Context, j *job.Job, status job.Status, errMsg string) {
	now := core.Now()
	j.Status = status
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	s.saveJob(ctx, j)
}

// saveJob persists job state; persistence errors are logged, not fatal
// to the run. Uses a detached context so a cancelled run can still
// record its final status.
func (s *Server) saveJob(ctx context.Context, j *job.Job) {
	if err := s.jobs.Update(context.WithoutCancel(ctx), j); err != nil {
		log.Printf("job %s: failed to persist state: %v", j.ID, err)
	}
}

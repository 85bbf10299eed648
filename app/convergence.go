package app

import (
	"context"

	"bitwash/domain/bits"
	"bitwash/domain/stage"
)

// ConvergenceState classifies how the round loop ended.
type ConvergenceState string

const (
	// StateConverged means every chunk of the final round passed.
	StateConverged ConvergenceState = "converged"
	// StateEmpty means no chunk survived: either a round wiped out all
	// chunks, or the remaining bits were shorter than one chunk.
	StateEmpty ConvergenceState = "empty"
	// StateGaveUp means the round bound was hit while rounds were still
	// partially passing. Distinct from both terminal states above.
	StateGaveUp ConvergenceState = "gave_up"
)

// ConvergenceResult is the outcome of the full round loop.
type ConvergenceResult struct {
	State  ConvergenceState
	Output bits.Sequence // survivors of the final all-pass round; nil otherwise
	Rounds []stage.RoundReport
}

// ConvergenceController drives repeated full-test rounds over the
// surviving bitstream until it stabilizes. Each round re-chunks the
// previous round's survivors; rounds are strictly sequential.
//
// The bare keep-retesting loop has no termination proof: a slowly
// shrinking partial-pass stream could loop for a long time. MaxRounds
// is the explicit guard that turns that into a reportable give-up.
type ConvergenceController struct {
	runner    *StageRunner
	fullStage stage.Config

	// MaxRounds bounds the loop; hitting it yields StateGaveUp.
	MaxRounds int

	// OnRound, when set, observes each completed round. Used by the job
	// layer for progress reporting.
	OnRound func(stage.RoundReport)
}

// NewConvergenceController creates a controller running fullStage rounds
func NewConvergenceController(runner *StageRunner, fullStage stage.Config, maxRounds int) *ConvergenceController {
	return &ConvergenceController{
		runner:    runner,
		fullStage: fullStage,
		MaxRounds: maxRounds,
	}
}

// Run executes rounds starting from input until a terminal condition:
//
//   - all chunks pass (and at least one chunk exists): converged, the
//     round's survivors are the output
//   - zero chunks producible, or zero passes: empty, no output
//   - partial pass: survivors feed the next round
//   - MaxRounds reached while still partial: gave up, no output
//
// Infrastructure failures (oracle unavailable, cancellation) surface as
// errors; no partial output is ever returned alongside an error.
func (c *ConvergenceController) Run(ctx context.Context, input bits.Sequence) (*ConvergenceResult, error) {
	result := &ConvergenceResult{}
	current := input

	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.MaxRounds > 0 && round > c.MaxRounds {
			result.State = StateGaveUp
			return result, nil
		}

		outcome, err := c.runner.Run(ctx, current, c.fullStage)
		if err != nil {
			return nil, err
		}

		report := stage.RoundReport{
			Round:   round,
			Outcome: outcome,
			BitsIn:  current.Len(),
			BitsOut: outcome.Survivors.Len(),
		}
		result.Rounds = append(result.Rounds, report)
		if c.OnRound != nil {
			c.OnRound(report)
		}

		switch {
		case outcome.AllPassed():
			result.State = StateConverged
			result.Output = outcome.Survivors
			return result, nil
		case outcome.ChunkCount == 0 || outcome.NonePassed():
			result.State = StateEmpty
			return result, nil
		default:
			// Partial pass: the survivors shrink by at least one chunk,
			// so the loop is bounded by the initial chunk count even
			// before MaxRounds bites.
			current = outcome.Survivors
		}
	}
}

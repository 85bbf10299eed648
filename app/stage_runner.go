package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"bitwash/domain/bits"
	"bitwash/domain/stage"
	"bitwash/domain/verdict"
	"bitwash/ports"
)

// StageRunner executes one stage over one bit sequence: chunk the input,
// test every chunk through the oracle, aggregate each chunk's results
// into a verdict, and concatenate the survivors in original order.
//
// Chunks are independent, so they are tested in parallel up to
// MaxParallel. Rounds built on top of this runner stay strictly
// sequential; parallelism never crosses a stage boundary.
type StageRunner struct {
	oracle     ports.OraclePort
	aggregator *verdict.Aggregator

	// MaxParallel bounds concurrent chunk tests within one stage.
	MaxParallel int
}

// NewStageRunner creates a stage runner over the given oracle
func NewStageRunner(oracle ports.OraclePort, aggregator *verdict.Aggregator) *StageRunner {
	return &StageRunner{
		oracle:      oracle,
		aggregator:  aggregator,
		MaxParallel: 1,
	}
}

// Run executes the stage. Zero chunks (input shorter than one chunk) is
// a valid outcome with zero passes, not an error. An oracle-unavailable
// failure on any chunk aborts the whole stage: a broken collaborator
// must never be scored as a statistical rejection.
func (r *StageRunner) Run(ctx context.Context, seq bits.Sequence, cfg stage.Config) (stage.Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return stage.Outcome{}, err
	}

	started := time.Now()
	chunks := bits.Split(seq, cfg.ChunkSize)

	outcome := stage.Outcome{
		Stage:      cfg.Name,
		ChunkCount: len(chunks),
		Verdicts:   make([]verdict.ChunkVerdict, len(chunks)),
	}
	if len(chunks) == 0 {
		outcome.DurationMs = time.Since(started).Milliseconds()
		return outcome, nil
	}

	parallel := r.MaxParallel
	if parallel < 1 {
		parallel = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results, err := r.oracle.RunTests(gctx, chunk, cfg.Tests)
			if err != nil {
				return err
			}
			// Verdicts are decided once per chunk and never recomputed.
			outcome.Verdicts[chunk.Index] = r.aggregator.Judge(chunk.Index, cfg.Tests, results)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stage.Outcome{}, err
	}

	// Reassemble survivors in original chunk order.
	var passing []bits.Sequence
	for i, v := range outcome.Verdicts {
		if v.Passed {
			outcome.PassCount++
			passing = append(passing, chunks[i].Bits)
		}
	}
	outcome.Survivors = bits.Concat(passing...)
	outcome.DurationMs = time.Since(started).Milliseconds()

	return outcome, nil
}

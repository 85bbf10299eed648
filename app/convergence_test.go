package app

import (
	"context"
	"errors"
	"testing"

	"bitwash/domain/bits"
	"bitwash/domain/stage"
	"bitwash/domain/verdict"
	"bitwash/internal/testkit"
	"bitwash/ports"
)

func fullStage(chunkSize int) stage.Config {
	return stage.Config{
		Name:      stage.StageFullTest,
		ChunkSize: chunkSize,
		Tests:     verdict.FullBattery(),
	}
}

// oracleFunc adapts a function to ports.OraclePort for scenarios the
// content-keyed fake cannot express.
type oracleFunc func(ctx context.Context, chunk bits.Chunk, tests []verdict.TestName) (map[verdict.TestName]verdict.TestResult, error)

func (f oracleFunc) RunTests(ctx context.Context, chunk bits.Chunk, tests []verdict.TestName) (map[verdict.TestName]verdict.TestResult, error) {
	return f(ctx, chunk, tests)
}

var _ ports.OraclePort = oracleFunc(nil)

// TestConvergeAfterFiltering tests the canonical shrinking run: four
// chunks, one bad; round one removes it, round two passes everything.
func TestConvergeAfterFiltering(t *testing.T) {
	oracle := testkit.NewFakeOracle()
	oracle.FailChunk(mustBits(t, "0101"))

	runner := NewStageRunner(oracle, verdict.NewAggregator())
	controller := NewConvergenceController(runner, fullStage(4), 16)

	// Four distinct chunks; 0101 is the bad one.
	input := mustBits(t, "1111000010100101")
	result, err := controller.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.State != StateConverged {
		t.Fatalf("Expected converged, got %s", result.State)
	}
	if len(result.Rounds) != 2 {
		t.Fatalf("Expected 2 rounds, got %d", len(result.Rounds))
	}
	if result.Rounds[0].Outcome.PassCount != 3 || result.Rounds[0].Outcome.ChunkCount != 4 {
		t.Errorf("Round 1: expected 3/4, got %d/%d",
			result.Rounds[0].Outcome.PassCount, result.Rounds[0].Outcome.ChunkCount)
	}
	if result.Rounds[1].Outcome.PassCount != 3 || result.Rounds[1].Outcome.ChunkCount != 3 {
		t.Errorf("Round 2: expected 3/3, got %d/%d",
			result.Rounds[1].Outcome.PassCount, result.Rounds[1].Outcome.ChunkCount)
	}
	if result.Output.ASCII() != "111100001010" {
		t.Errorf("Expected output 111100001010, got %s", result.Output.ASCII())
	}
}

// TestConvergeFirstRound tests immediate convergence on clean input
func TestConvergeFirstRound(t *testing.T) {
	runner := NewStageRunner(testkit.NewFakeOracle(), verdict.NewAggregator())
	controller := NewConvergenceController(runner, fullStage(4), 16)

	input := mustBits(t, "11110000")
	result, err := controller.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.State != StateConverged || len(result.Rounds) != 1 {
		t.Errorf("Expected convergence in 1 round, got %s after %d", result.State, len(result.Rounds))
	}
	if result.Output.ASCII() != input.ASCII() {
		t.Error("Expected output to equal input on an all-pass first round")
	}
}

// TestEmptyWhenAllFail tests the wiped-out terminal state
func TestEmptyWhenAllFail(t *testing.T) {
	oracle := testkit.NewFakeOracle()
	for _, chunk := range []string{"1111", "0000", "1010", "0101"} {
		oracle.FailChunk(mustBits(t, chunk))
	}

	runner := NewStageRunner(oracle, verdict.NewAggregator())
	controller := NewConvergenceController(runner, fullStage(4), 16)

	result, err := controller.Run(context.Background(), mustBits(t, "1111000010100101"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.State != StateEmpty {
		t.Errorf("Expected empty, got %s", result.State)
	}
	if result.Output != nil {
		t.Error("Expected no output in the empty state")
	}
	if len(result.Rounds) != 1 {
		t.Errorf("Expected exactly 1 round, got %d", len(result.Rounds))
	}
}

// TestEmptyWhenInputTooShort tests that an input below one chunk is
// terminal immediately
func TestEmptyWhenInputTooShort(t *testing.T) {
	runner := NewStageRunner(testkit.NewFakeOracle(), verdict.NewAggregator())
	controller := NewConvergenceController(runner, fullStage(16), 16)

	result, err := controller.Run(context.Background(), mustBits(t, "101"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.State != StateEmpty {
		t.Errorf("Expected empty for a sub-chunk input, got %s", result.State)
	}
}

// TestGaveUpAtRoundBound tests the give-up guard on a stream that keeps
// losing one chunk per round without ever fully passing
func TestGaveUpAtRoundBound(t *testing.T) {
	// Index-keyed failure: the first chunk of every round fails, so each
	// round is a partial pass as long as at least two chunks remain.
	passing := testkit.NewFakeOracle()
	oracle := oracleFunc(func(ctx context.Context, chunk bits.Chunk, tests []verdict.TestName) (map[verdict.TestName]verdict.TestResult, error) {
		results, err := passing.RunTests(ctx, chunk, tests)
		if err != nil {
			return nil, err
		}
		if chunk.Index == 0 {
			results[verdict.TestFrequency] = verdict.TestResult{
				Test:    verdict.TestFrequency,
				PValues: []float64{0.001},
			}
		}
		return results, nil
	})

	runner := NewStageRunner(oracle, verdict.NewAggregator())
	controller := NewConvergenceController(runner, fullStage(4), 3)

	var observed []int
	controller.OnRound = func(r stage.RoundReport) {
		observed = append(observed, r.Round)
	}

	input := make(bits.Sequence, 4*10) // ten chunks of zeros
	result, err := controller.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.State != StateGaveUp {
		t.Fatalf("Expected gave_up, got %s", result.State)
	}
	if result.Output != nil {
		t.Error("Expected no output after giving up")
	}
	if len(result.Rounds) != 3 {
		t.Errorf("Expected exactly 3 rounds before giving up, got %d", len(result.Rounds))
	}
	for i, round := range observed {
		if round != i+1 {
			t.Errorf("Expected round numbers 1..3 in order, got %v", observed)
			break
		}
	}
}

// TestRoundsAreSequential tests that round N+1 consumes exactly round N's
// survivors
func TestRoundsAreSequential(t *testing.T) {
	oracle := testkit.NewFakeOracle()
	oracle.FailChunk(mustBits(t, "0101"))

	runner := NewStageRunner(oracle, verdict.NewAggregator())
	controller := NewConvergenceController(runner, fullStage(4), 16)

	result, err := controller.Run(context.Background(), mustBits(t, "1111000010100101"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := 1; i < len(result.Rounds); i++ {
		prev, cur := result.Rounds[i-1], result.Rounds[i]
		if cur.BitsIn != prev.BitsOut {
			t.Errorf("Round %d consumed %d bits but round %d produced %d",
				cur.Round, cur.BitsIn, prev.Round, prev.BitsOut)
		}
	}
}

// TestRunCancelledBetweenRounds tests cancellation before the loop starts
func TestRunCancelledBetweenRounds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewStageRunner(testkit.NewFakeOracle(), verdict.NewAggregator())
	controller := NewConvergenceController(runner, fullStage(4), 16)

	_, err := controller.Run(ctx, mustBits(t, "11110000"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

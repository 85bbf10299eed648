package app

import (
	"context"

	"bitwash/domain/bits"
	"bitwash/domain/core"
	"bitwash/domain/stage"
	"bitwash/domain/verdict"
	"bitwash/internal/config"
	"bitwash/internal/errors"
	"bitwash/ports"
)

// SanitizeService is the top of the core pipeline: materialize bits from
// raw bytes, run the precheck stage once, then drive full-test rounds to
// convergence. The job layer sits above this and owns persistence; this
// service owns the three-way outcome contract.
type SanitizeService struct {
	precheckRunner *StageRunner
	fullRunner     *StageRunner

	precheckStage stage.Config
	fullStage     stage.Config

	precheckEnabled bool
	maxRounds       int

	// OnPrecheck and OnRound observe pipeline progress; both optional.
	OnPrecheck func(stage.Outcome)
	OnRound    func(stage.RoundReport)
}

// SanitizeResult is the pipeline's report for one run.
type SanitizeResult struct {
	State    ConvergenceState
	Output   bits.Sequence
	Precheck *stage.Outcome
	Rounds   []stage.RoundReport

	BitsIn       int
	BitsOut      int
	ChunksTested int
}

// NewSanitizeService wires the pipeline from configuration. The precheck
// oracle may differ from the full-test oracle (a cheap in-process engine
// vs. the external battery); both stages share aggregation thresholds.
func NewSanitizeService(precheckOracle, fullOracle ports.OraclePort, cfg config.PipelineConfig, maxParallel int) *SanitizeService {
	aggregator := &verdict.Aggregator{
		Alpha:             cfg.Alpha,
		SubTestRequired:   cfg.SubTestRequired,
		SubTestPopulation: cfg.SubTestPopulation,
	}

	precheckRunner := NewStageRunner(precheckOracle, aggregator)
	precheckRunner.MaxParallel = maxParallel
	fullRunner := NewStageRunner(fullOracle, aggregator)
	fullRunner.MaxParallel = maxParallel

	return &SanitizeService{
		precheckRunner: precheckRunner,
		fullRunner:     fullRunner,
		precheckStage: stage.Config{
			Name:      stage.StagePrecheck,
			ChunkSize: cfg.PrecheckChunkSize,
			Tests:     verdict.PrecheckBattery(),
		},
		fullStage: stage.Config{
			Name:      stage.StageFullTest,
			ChunkSize: cfg.ChunkSize,
			Tests:     verdict.FullBattery(),
		},
		precheckEnabled: cfg.PrecheckEnabled,
		maxRounds:       cfg.MaxRounds,
	}
}

// Sanitize runs the full pipeline over raw input bytes.
//
// Errors are reserved for infrastructure failures: unreadable/empty
// input, an unreachable oracle, cancellation. Statistical outcomes,
// including "nothing survived", come back as a result with the
// corresponding state and never as an error.
func (s *SanitizeService) Sanitize(ctx context.Context, data []byte) (*SanitizeResult, error) {
	if len(data) == 0 {
		return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrEmptyInput)
	}

	seq := bits.FromBytes(data)
	result := &SanitizeResult{BitsIn: seq.Len()}

	// Precheck runs exactly once. Its survivors are not exempt from
	// full-test scrutiny: the full stage re-chunks them at the larger
	// production chunk size.
	if s.precheckEnabled {
		outcome, err := s.precheckRunner.Run(ctx, seq, s.precheckStage)
		if err != nil {
			return nil, err
		}
		result.Precheck = &outcome
		result.ChunksTested += outcome.ChunkCount
		if s.OnPrecheck != nil {
			s.OnPrecheck(outcome)
		}
		seq = outcome.Survivors
	}

	controller := NewConvergenceController(s.fullRunner, s.fullStage, s.maxRounds)
	controller.OnRound = func(report stage.RoundReport) {
		result.ChunksTested += report.Outcome.ChunkCount
		if s.OnRound != nil {
			s.OnRound(report)
		}
	}

	conv, err := controller.Run(ctx, seq)
	if err != nil {
		return nil, err
	}

	result.State = conv.State
	result.Output = conv.Output
	result.Rounds = conv.Rounds
	result.BitsOut = conv.Output.Len()
	return result, nil
}

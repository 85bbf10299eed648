package ports

import (
	"context"

	"bitwash/domain/bits"
	"bitwash/domain/verdict"
)

// OraclePort is the boundary to the external statistical-test oracle.
// One call tests one chunk against the requested tests and returns a
// result per requested name. The call is synchronous and side-effect
// isolated: implementations must fully rewrite their input artifact per
// call so no chunk ever observes state left by a previous chunk.
//
// An unreachable oracle, or one that produces no parseable result set,
// returns an error wrapping core.ErrOracleUnavailable. That is an
// infrastructure failure and aborts the pipeline; it is never scored as
// a failing chunk. Per-test gaps inside an otherwise usable result set
// are not errors here: the aggregator treats them as failing verdicts.
type OraclePort interface {
	RunTests(ctx context.Context, chunk bits.Chunk, tests []verdict.TestName) (map[verdict.TestName]verdict.TestResult, error)
}

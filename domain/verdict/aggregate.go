package verdict

// Policy selects how a single test's result reduces to pass/fail.
type Policy int

const (
	// PolicyThreshold fails the test if any reported p-value is
	// strictly below alpha. A p-value of exactly zero fails: an exact
	// zero is maximally suspicious, not exempt.
	PolicyThreshold Policy = iota

	// PolicySubTestCount fails the test only if fewer than the required
	// number of sub-tests individually meet alpha. Used for the
	// template-matching test, whose many sub-tests carry an elevated
	// false-positive rate.
	PolicySubTestCount
)

// Aggregator reduces a chunk's test results into one verdict.
type Aggregator struct {
	// Alpha is the p-value significance threshold.
	Alpha float64

	// SubTestRequired and SubTestPopulation bound the relaxed
	// sub-test-count policy (143 of 148 templates by default).
	SubTestRequired   int
	SubTestPopulation int
}

// Defaults per NIST STS 2.1.2.
const (
	DefaultAlpha             = 0.01
	DefaultSubTestRequired   = 143
	DefaultSubTestPopulation = 148
)

// NewAggregator creates an aggregator with the production thresholds.
func NewAggregator() *Aggregator {
	return &Aggregator{
		Alpha:             DefaultAlpha,
		SubTestRequired:   DefaultSubTestRequired,
		SubTestPopulation: DefaultSubTestPopulation,
	}
}

// PolicyFor returns the aggregation policy for a test name.
func PolicyFor(test TestName) Policy {
	if test == TestNonOverlappingTemplate {
		return PolicySubTestCount
	}
	return PolicyThreshold
}

// Judge decides a chunk's verdict from its results. Every requested test
// must pass under its policy; a single failing test fails the chunk. A
// requested test with no result, or a result with no p-values, counts as
// a failure of that test: garbled statistical output is never a pass.
func (a *Aggregator) Judge(chunkIndex int, requested []TestName, results map[TestName]TestResult) ChunkVerdict {
	v := ChunkVerdict{ChunkIndex: chunkIndex, Passed: true}
	for _, test := range requested {
		res, ok := results[test]
		if !ok || len(res.PValues) == 0 {
			v.Passed = false
			v.FailedTests = append(v.FailedTests, test)
			continue
		}
		if !a.testPasses(test, res) {
			v.Passed = false
			v.FailedTests = append(v.FailedTests, test)
		}
	}
	return v
}

func (a *Aggregator) testPasses(test TestName, res TestResult) bool {
	switch PolicyFor(test) {
	case PolicySubTestCount:
		// Missing sub-tests in a short template report count as
		// failures: only the surviving p-values add to the tally.
		tally := res.TallyAt(a.Alpha)
		return tally.Passed >= a.SubTestRequired
	default:
		for _, p := range res.PValues {
			if p < a.Alpha {
				return false
			}
		}
		return true
	}
}

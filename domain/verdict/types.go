package verdict

// TestName identifies one statistical test in the oracle's battery.
type TestName string

// NIST STS 2.1.2 battery
const (
	TestFrequency              TestName = "Frequency"
	TestBlockFrequency         TestName = "BlockFrequency"
	TestCumulativeSums         TestName = "CumulativeSums"
	TestRuns                   TestName = "Runs"
	TestLongestRun             TestName = "LongestRun"
	TestRank                   TestName = "Rank"
	TestFFT                    TestName = "FFT"
	TestNonOverlappingTemplate TestName = "NonOverlappingTemplate"
	TestOverlappingTemplate    TestName = "OverlappingTemplate"
	TestUniversal              TestName = "Universal"
	TestApproximateEntropy     TestName = "ApproximateEntropy"
	TestSerial                 TestName = "Serial"
	TestLinearComplexity       TestName = "LinearComplexity"
)

// FullBattery is the complete test set a full-test round runs.
func FullBattery() []TestName {
	return []TestName{
		TestFrequency,
		TestBlockFrequency,
		TestCumulativeSums,
		TestRuns,
		TestLongestRun,
		TestRank,
		TestFFT,
		TestNonOverlappingTemplate,
		TestOverlappingTemplate,
		TestUniversal,
		TestApproximateEntropy,
		TestSerial,
		TestLinearComplexity,
	}
}

// PrecheckBattery is the cheap subset the precheck stage uses to discard
// grossly bad material before the expensive full battery.
func PrecheckBattery() []TestName {
	return []TestName{
		TestFrequency,
		TestBlockFrequency,
		TestRuns,
		TestCumulativeSums,
	}
}

// TestResult is the oracle's output for one (chunk, test) pair: an
// ordered list of p-values. Tests like CumulativeSums and Serial report
// more than one p-value; NonOverlappingTemplate reports one per template
// pattern. Results are produced once and read-only thereafter.
type TestResult struct {
	Test    TestName
	PValues []float64
}

// SubTestTally counts how many sub-tests individually met the p-value
// threshold, out of the test's known sub-test population.
type SubTestTally struct {
	Passed     int
	Population int
}

// TallyAt derives the sub-test tally from the result's p-values under
// the given threshold.
func (r TestResult) TallyAt(alpha float64) SubTestTally {
	t := SubTestTally{Population: len(r.PValues)}
	for _, p := range r.PValues {
		if p >= alpha {
			t.Passed++
		}
	}
	return t
}

// ChunkVerdict is the pass/fail decision for one chunk, with the tests
// that sank it when it failed.
type ChunkVerdict struct {
	ChunkIndex  int
	Passed      bool
	FailedTests []TestName
}

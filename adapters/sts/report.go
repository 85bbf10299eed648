package sts

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bitwash/domain/core"
	"bitwash/domain/verdict"
)

// parseResults collects one TestResult per requested test from the
// experiments tree assess leaves behind. Each test directory holds a
// results.txt with one p-value per line (one per sub-test for the
// template tests).
//
// A missing or garbled file for a single test yields no usable p-values
// for that test; the aggregator scores that as a failing verdict. A run
// that produced no final report, or nothing parseable at all, is an
// oracle-unavailable failure instead.
func parseResults(resultsDir string, tests []verdict.TestName) (map[verdict.TestName]verdict.TestResult, error) {
	if _, err := os.Stat(resultsDir); err != nil {
		return nil, fmt.Errorf("%w: results directory missing, assess likely failed to run", core.ErrOracleUnavailable)
	}
	if _, err := os.Stat(filepath.Join(resultsDir, "finalAnalysisReport.txt")); err != nil {
		return nil, fmt.Errorf("%w: finalAnalysisReport.txt not found", core.ErrOracleUnavailable)
	}

	results := make(map[verdict.TestName]verdict.TestResult, len(tests))
	parsedAny := false

	for _, test := range tests {
		pvals, err := readPValues(filepath.Join(resultsDir, string(test), "results.txt"))
		if err != nil {
			// Leave the entry absent; the verdict layer fails the test.
			continue
		}
		results[test] = verdict.TestResult{Test: test, PValues: pvals}
		if len(pvals) > 0 {
			parsedAny = true
		}
	}

	if !parsedAny {
		return nil, fmt.Errorf("%w: no parseable test results under %s", core.ErrOracleUnavailable, resultsDir)
	}
	return results, nil
}

// readPValues reads one p-value per non-empty line. Any malformed line
// poisons the whole file: partial statistical output is not trusted.
func readPValues(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pvals []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed p-value %q in %s", line, path)
		}
		pvals = append(pvals, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pvals, nil
}

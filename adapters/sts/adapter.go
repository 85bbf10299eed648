// Package sts adapts the NIST Statistical Test Suite (sts-2.1.2) as the
// pipeline's external test oracle. Each call shells out to the assess
// binary inside a scoped working directory and parses the per-test
// result files it leaves behind.
package sts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"bitwash/domain/bits"
	"bitwash/domain/core"
	"bitwash/domain/verdict"
)

// assessOrder is the test numbering assess presents in its selection
// menu. The mask answer must follow this order exactly.
var assessOrder = []verdict.TestName{
	verdict.TestFrequency,
	verdict.TestBlockFrequency,
	verdict.TestCumulativeSums,
	verdict.TestRuns,
	verdict.TestLongestRun,
	verdict.TestRank,
	verdict.TestFFT,
	verdict.TestNonOverlappingTemplate,
	verdict.TestOverlappingTemplate,
	verdict.TestUniversal,
	verdict.TestApproximateEntropy,
	"RandomExcursions",
	"RandomExcursionsVariant",
	verdict.TestSerial,
	verdict.TestLinearComplexity,
}

// Oracle runs NIST STS against single chunks.
type Oracle struct {
	installDir string
	assessPath string
	sem        *semaphore.Weighted
	timeout    time.Duration
}

// NewOracle validates the STS installation and returns an oracle bound
// to it. maxConcurrent bounds simultaneous assess processes; every call
// still gets its own working directory.
func NewOracle(installDir string, maxConcurrent int, timeout time.Duration) (*Oracle, error) {
	assessPath := filepath.Join(installDir, "assess")
	if _, err := os.Stat(assessPath); err != nil {
		return nil, fmt.Errorf("%w: assess binary not found at %s", core.ErrOracleUnavailable, assessPath)
	}
	if _, err := os.Stat(filepath.Join(installDir, "templates")); err != nil {
		return nil, fmt.Errorf("%w: templates directory missing under %s", core.ErrOracleUnavailable, installDir)
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Oracle{
		installDir: installDir,
		assessPath: assessPath,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		timeout:    timeout,
	}, nil
}

// RunTests tests one chunk against the requested battery.
func (o *Oracle) RunTests(ctx context.Context, chunk bits.Chunk, tests []verdict.TestName) (map[verdict.TestName]verdict.TestResult, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.sem.Release(1)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	ws, err := newWorkspace(o.installDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrOracleUnavailable, err)
	}
	defer ws.Close()

	if err := ws.writeEpsilon(chunk.Bits); err != nil {
		return nil, fmt.Errorf("%w: write epsilon: %v", core.ErrOracleUnavailable, err)
	}

	if err := o.runAssess(ctx, ws, chunk.Bits.Len(), tests); err != nil {
		return nil, err
	}

	results, err := parseResults(ws.resultsDir(), tests)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// runAssess invokes the assess binary with its interactive prompts
// answered over stdin: generator 0 (input file), the epsilon path, the
// test selection, default parameters, one bitstream, ASCII input.
func (o *Oracle) runAssess(ctx context.Context, ws *workspace, bitLength int, tests []verdict.TestName) error {
	cmd := exec.CommandContext(ctx, o.assessPath, strconv.Itoa(bitLength))
	cmd.Dir = ws.dir
	cmd.Stdin = strings.NewReader(assessScript(tests))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: assess failed: %v (%s)", core.ErrOracleUnavailable, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// assessScript builds the stdin answers for one run.
func assessScript(tests []verdict.TestName) string {
	var b strings.Builder
	b.WriteString("0\n")                 // generator: user input file
	b.WriteString(epsilonRelPath + "\n") // input file
	if mask, all := testMask(tests); all {
		b.WriteString("1\n") // apply all statistical tests
	} else {
		b.WriteString("0\n") // choose tests individually
		b.WriteString(mask + "\n")
	}
	b.WriteString("0\n") // keep default parameters
	b.WriteString("1\n") // one bitstream
	b.WriteString("1\n") // input mode: ASCII
	return b.String()
}

// testMask renders the 15-digit selection vector for the requested
// tests, and reports whether the request covers the whole menu.
func testMask(tests []verdict.TestName) (mask string, all bool) {
	requested := make(map[verdict.TestName]bool, len(tests))
	for _, t := range tests {
		requested[t] = true
	}

	buf := make([]byte, len(assessOrder))
	all = true
	for i, name := range assessOrder {
		if requested[name] {
			buf[i] = '1'
		} else {
			buf[i] = '0'
			all = false
		}
	}
	return string(buf), all
}

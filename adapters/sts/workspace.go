package sts

import (
	"fmt"
	"os"
	"path/filepath"

	"bitwash/domain/bits"
)

// testDirs lists every experiment directory assess expects to exist
// under experiments/AlgorithmTesting before it will run.
var testDirs = []string{
	"Frequency",
	"BlockFrequency",
	"CumulativeSums",
	"Runs",
	"LongestRun",
	"Rank",
	"FFT",
	"NonOverlappingTemplate",
	"OverlappingTemplate",
	"Universal",
	"ApproximateEntropy",
	"RandomExcursions",
	"RandomExcursionsVariant",
	"Serial",
	"LinearComplexity",
}

// workspace is a scoped working directory for exactly one assess run.
// The STS binary writes its results relative to its working directory,
// which is global mutable state; giving every call a fresh directory is
// what keeps concurrent chunk tests from observing each other's output.
type workspace struct {
	dir string
}

// newWorkspace builds a disposable STS working tree: data/ for the
// epsilon input, the experiments skeleton for results, and a symlink to
// the installation's template patterns.
func newWorkspace(installDir string) (*workspace, error) {
	dir, err := os.MkdirTemp("", "sts-run-*")
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	ws := &workspace{dir: dir}

	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		ws.Close()
		return nil, err
	}
	for _, td := range testDirs {
		if err := os.MkdirAll(filepath.Join(ws.resultsDir(), td), 0o755); err != nil {
			ws.Close()
			return nil, err
		}
	}
	if err := os.Symlink(filepath.Join(installDir, "templates"), filepath.Join(dir, "templates")); err != nil {
		ws.Close()
		return nil, fmt.Errorf("link templates: %w", err)
	}

	return ws, nil
}

// writeEpsilon rewrites the input artifact for this call. The file is
// created fresh in a fresh directory, so a stale epsilon from a prior
// chunk is impossible.
func (ws *workspace) writeEpsilon(seq bits.Sequence) error {
	return os.WriteFile(ws.epsilonPath(), []byte(seq.ASCII()+"\n"), 0o644)
}

func (ws *workspace) epsilonPath() string {
	return filepath.Join(ws.dir, "data", "epsilon")
}

// epsilonRelPath is the input path fed to assess, relative to the
// working directory.
const epsilonRelPath = "data/epsilon"

func (ws *workspace) resultsDir() string {
	return filepath.Join(ws.dir, "experiments", "AlgorithmTesting")
}

func (ws *workspace) finalReportPath() string {
	return filepath.Join(ws.resultsDir(), "finalAnalysisReport.txt")
}

// Close removes the working tree. Safe on every exit path.
func (ws *workspace) Close() {
	if ws.dir != "" {
		os.RemoveAll(ws.dir)
	}
}

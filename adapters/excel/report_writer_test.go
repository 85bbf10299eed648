package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bitwash/domain/bits"
	"bitwash/domain/stage"
	"bitwash/domain/verdict"
)

// TestWriteWorkbook tests that a run renders into the two expected
// sheets with the round and failure data in place
func TestWriteWorkbook(t *testing.T) {
	precheck := &stage.Outcome{
		Stage:      stage.StagePrecheck,
		ChunkCount: 4,
		PassCount:  3,
		Survivors:  make(bits.Sequence, 12),
		DurationMs: 7,
	}
	rounds := []stage.RoundReport{
		{
			Round: 1,
			Outcome: stage.Outcome{
				Stage:      stage.StageFullTest,
				ChunkCount: 3,
				PassCount:  2,
				Verdicts: []verdict.ChunkVerdict{
					{ChunkIndex: 0, Passed: true},
					{ChunkIndex: 1, Passed: false, FailedTests: []verdict.TestName{verdict.TestRuns, verdict.TestFFT}},
					{ChunkIndex: 2, Passed: true},
				},
				DurationMs: 1200,
			},
			BitsIn:  12,
			BitsOut: 8,
		},
		{
			Round: 2,
			Outcome: stage.Outcome{
				Stage:      stage.StageFullTest,
				ChunkCount: 2,
				PassCount:  2,
				Verdicts: []verdict.ChunkVerdict{
					{ChunkIndex: 0, Passed: true},
					{ChunkIndex: 1, Passed: true},
				},
				DurationMs: 900,
			},
			BitsIn:  8,
			BitsOut: 8,
		},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewReportWriter().Write(path, precheck, rounds))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Summary: header, precheck row, two round rows.
	got, err := f.GetCellValue("Rounds", "A2")
	require.NoError(t, err)
	assert.Equal(t, "precheck", got)

	got, _ = f.GetCellValue("Rounds", "B3")
	assert.Equal(t, "1", got)
	got, _ = f.GetCellValue("Rounds", "D3")
	assert.Equal(t, "2", got)
	got, _ = f.GetCellValue("Rounds", "F4")
	assert.Equal(t, "8", got)

	// Failures: the single failing chunk from round 1.
	got, _ = f.GetCellValue("Failed Chunks", "B2")
	assert.Equal(t, "1", got)
	got, _ = f.GetCellValue("Failed Chunks", "C2")
	assert.Equal(t, "Runs, FFT", got)
	got, _ = f.GetCellValue("Failed Chunks", "A3")
	assert.Empty(t, got, "only one chunk failed across the run")
}

// TestWriteWithoutPrecheck tests the precheck-disabled layout
func TestWriteWithoutPrecheck(t *testing.T) {
	rounds := []stage.RoundReport{
		{
			Round: 1,
			Outcome: stage.Outcome{
				Stage:      stage.StageFullTest,
				ChunkCount: 1,
				PassCount:  1,
				Verdicts:   []verdict.ChunkVerdict{{ChunkIndex: 0, Passed: true}},
			},
			BitsIn:  8,
			BitsOut: 8,
		},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewReportWriter().Write(path, nil, rounds))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, _ := f.GetCellValue("Rounds", "A2")
	assert.Equal(t, "full_test", got, "first data row is round 1 when precheck is off")
}

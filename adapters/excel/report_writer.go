// Package excel exports run reports as workbooks for offline review.
package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"bitwash/domain/stage"
)

// ReportWriter renders a sanitization run into an xlsx workbook: one
// summary sheet of rounds, one sheet of per-chunk failures.
type ReportWriter struct{}

// NewReportWriter creates a report writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write builds the workbook and saves it to path.
func (w *ReportWriter) Write(path string, precheck *stage.Outcome, rounds []stage.RoundReport) error {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Rounds"
	f.SetSheetName("Sheet1", summarySheet)

	headers := []string{"Stage", "Round", "Chunks", "Passed", "Bits In", "Bits Out", "Duration (ms)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summarySheet, cell, h)
	}

	rowIdx := 2
	writeRow := func(values []interface{}) {
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
			f.SetCellValue(summarySheet, cell, v)
		}
		rowIdx++
	}

	if precheck != nil {
		writeRow([]interface{}{
			string(precheck.Stage), "-", precheck.ChunkCount, precheck.PassCount,
			"-", precheck.Survivors.Len(), precheck.DurationMs,
		})
	}
	for _, r := range rounds {
		writeRow([]interface{}{
			string(r.Outcome.Stage), r.Round, r.Outcome.ChunkCount, r.Outcome.PassCount,
			r.BitsIn, r.BitsOut, r.Outcome.DurationMs,
		})
	}

	const failSheet = "Failed Chunks"
	if _, err := f.NewSheet(failSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	failHeaders := []string{"Round", "Chunk", "Failed Tests"}
	for i, h := range failHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(failSheet, cell, h)
	}

	failRow := 2
	for _, r := range rounds {
		for _, v := range r.Outcome.Verdicts {
			if v.Passed {
				continue
			}
			names := make([]string, 0, len(v.FailedTests))
			for _, t := range v.FailedTests {
				names = append(names, string(t))
			}
			for c, val := range []interface{}{r.Round, v.ChunkIndex, strings.Join(names, ", ")} {
				cell, _ := excelize.CoordinatesToCellName(c+1, failRow)
				f.SetCellValue(failSheet, cell, val)
			}
			failRow++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report workbook: %w", err)
	}
	return nil
}

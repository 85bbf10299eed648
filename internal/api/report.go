package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"bitwash/domain/job"
)

// handleReport renders a human-readable run summary as HTML.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	md := buildReportMarkdown(j)

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	html := markdown.ToHTML([]byte(md), p, renderer)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(html)
}

func buildReportMarkdown(j *job.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Sanitization Report\n\n")
	fmt.Fprintf(&b, "**Job**: `%s`  \n", j.ID)
	fmt.Fprintf(&b, "**File**: %s  \n", j.Filename)
	fmt.Fprintf(&b, "**Status**: %s\n\n", j.Status)

	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Chunk size | %d bits |\n", j.ChunkSize)
	fmt.Fprintf(&b, "| Rounds run | %d |\n", j.RoundsRun)
	fmt.Fprintf(&b, "| Chunks tested | %d |\n", j.ChunksTested)
	fmt.Fprintf(&b, "| Bits in | %d |\n", j.BitsIn)
	fmt.Fprintf(&b, "| Bits out | %d |\n", j.BitsOut)
	if j.BitsIn > 0 {
		fmt.Fprintf(&b, "| Survival rate | %.2f%% |\n", 100*float64(j.BitsOut)/float64(j.BitsIn))
	}

	switch j.Status {
	case job.StatusCompleted:
		fmt.Fprintf(&b, "\nEvery remaining chunk passed the full battery. The sanitized stream is available for download.\n")
	case job.StatusEmpty:
		fmt.Fprintf(&b, "\nNo chunk survived testing; the input produced no sanitized output.\n")
	case job.StatusGaveUp:
		fmt.Fprintf(&b, "\nThe round limit was reached while chunks were still failing. No output was produced.\n")
	case job.StatusFailed:
		fmt.Fprintf(&b, "\nPipeline error: %s\n", j.ErrorMessage)
	}
	return b.String()
}

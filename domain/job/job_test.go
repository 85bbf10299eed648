package job

import (
	"testing"
)

// TestNewJob tests the initial state of a freshly created job
func TestNewJob(t *testing.T) {
	j := New("sample.dat", "/data/in", "/data/out", 1000000)

	if j.ID == "" {
		t.Error("Expected a generated job ID")
	}
	if j.Status != StatusPending {
		t.Errorf("Expected pending status, got %s", j.Status)
	}
	if j.Filename != "sample.dat" || j.ChunkSize != 1000000 {
		t.Errorf("Job fields not recorded: %+v", j)
	}
	if j.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
	if j.StartedAt != nil || j.CompletedAt != nil {
		t.Error("Expected no start or completion time on a new job")
	}
}

// TestStatusTerminal tests the terminal classification of each status
func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusEmpty, StatusGaveUp, StatusFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Expected %s to be terminal", s)
		}
	}

	running := []Status{StatusPending, StatusPrecheck, StatusTesting}
	for _, s := range running {
		if s.Terminal() {
			t.Errorf("Expected %s to be non-terminal", s)
		}
	}
}

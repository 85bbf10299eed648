package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDString tests ID string conversion
func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
}

// TestParseJobID tests job ID parsing
func TestParseJobID(t *testing.T) {
	valid := NewID().String()
	id, err := ParseJobID(valid)
	if err != nil {
		t.Errorf("Expected valid UUID to parse, got %v", err)
	}
	if id.String() != valid {
		t.Errorf("Expected %s, got %s", valid, id)
	}

	if _, err := ParseJobID(""); err == nil {
		t.Error("Expected error for empty job ID")
	}
	if _, err := ParseJobID("  "); err == nil {
		t.Error("Expected error for blank job ID")
	}
	if _, err := ParseJobID("not-a-uuid"); err == nil {
		t.Error("Expected error for non-UUID job ID")
	}
}

package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeSegment writes events as a rotated segment file.
func writeSegment(t *testing.T, dir, filename string, events []Event) string {
	t.Helper()

	var data []byte
	for _, event := range events {
		line, err := event.MarshalLine()
		if err != nil {
			t.Fatalf("Failed to marshal event: %v", err)
		}
		data = append(data, line...)
		data = append(data, '\n')
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write segment: %v", err)
	}
	return path
}

// makeRunEvents builds a complete run record starting at the given time.
func makeRunEvents(runID RunID, start time.Time, items int) []Event {
	events := []Event{{
		Timestamp: start,
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata:  map[string]string{"source": "/downloads", "mode": "move"},
	}}
	for i := 0; i < items; i++ {
		events = append(events, Event{
			Timestamp: start.Add(time.Duration(i+1) * time.Second),
			RunID:     runID,
			EventType: EventItemMoved,
			Status:    StatusSuccess,
			Source:    fmt.Sprintf("/downloads/file-%d.pdf", i),
			Target:    fmt.Sprintf("/docs/file-%d.pdf", i),
			Category:  "DOCUMENT",
		})
	}
	events = append(events, Event{
		Timestamp: start.Add(time.Duration(items+1) * time.Second),
		RunID:     runID,
		EventType: EventRunEnd,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"status":    string(RunStatusCompleted),
			"total":     fmt.Sprintf("%d", items),
			"processed": fmt.Sprintf("%d", items),
			"moved":     fmt.Sprintf("%d", items),
			"copied":    "0",
			"failed":    "0",
		},
	})
	return events
}

// backdate sets a file's mod time into the past.
func backdate(t *testing.T, path string, age time.Duration) {
	t.Helper()
	old := time.Now().Add(-age)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Failed to backdate %s: %v", path, err)
	}
}

// TestPruneOldSegments checks that segments beyond the retention window
// are removed and the prune is recorded in the active journal.
func TestPruneOldSegments(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	const segName = "sift-journal-20250101-000000-000.jsonl"
	oldStart := time.Now().Add(-60 * 24 * time.Hour).UTC().Truncate(time.Second)
	segPath := writeSegment(t, tempDir, segName, makeRunEvents("run-old", oldStart, 3))
	backdate(t, segPath, 60*24*time.Hour)

	config := Config{
		Directory:        tempDir,
		RetentionDays:    30,
		MinRetentionDays: 7,
	}

	writer, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer writer.Close()

	result, err := writer.CheckAndPruneRetention()
	if err != nil {
		t.Fatalf("CheckAndPruneRetention failed: %v", err)
	}

	if len(result.PrunedSegments) != 1 || result.PrunedSegments[0] != segName {
		t.Fatalf("Expected %s to be pruned, got %v", segName, result.PrunedSegments)
	}
	if len(result.PrunedRuns) != 1 || result.PrunedRuns[0] != "run-old" {
		t.Errorf("Expected run-old in pruned runs, got %v", result.PrunedRuns)
	}
	if result.TotalBytesFreed <= 0 {
		t.Errorf("Expected freed bytes > 0, got %d", result.TotalBytesFreed)
	}

	if _, err := os.Stat(segPath); !os.IsNotExist(err) {
		t.Error("Pruned segment still exists")
	}
	if _, err := os.Stat(writer.LogPath()); err != nil {
		t.Errorf("Active journal should survive pruning: %v", err)
	}

	pruneRecorded := false
	for _, event := range readEvents(t, writer.LogPath()) {
		if event.EventType == EventRetentionPrune && event.Metadata["prunedSegment"] == segName {
			pruneRecorded = true
		}
	}
	if !pruneRecorded {
		t.Error("Expected a RETENTION_PRUNE event in the active journal")
	}
}

// TestMinRetentionProtectsYoungRuns checks that a segment whose newest
// run is younger than the minimum retention age survives, even when the
// file itself looks old.
func TestMinRetentionProtectsYoungRuns(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	const segName = "sift-journal-20250801-000000-000.jsonl"
	youngStart := time.Now().Add(-2 * 24 * time.Hour).UTC().Truncate(time.Second)
	segPath := writeSegment(t, tempDir, segName, makeRunEvents("run-young", youngStart, 1))
	backdate(t, segPath, 40*24*time.Hour)

	config := Config{
		Directory:        tempDir,
		RetentionDays:    30,
		MinRetentionDays: 7,
	}

	rm := NewRetentionManager(config)
	toPrune, err := rm.CheckRetention()
	if err != nil {
		t.Fatalf("CheckRetention failed: %v", err)
	}
	if len(toPrune) != 0 {
		t.Fatalf("Expected no prune candidates, got %v", toPrune)
	}

	if _, err := rm.Prune(nil); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if _, err := os.Stat(segPath); err != nil {
		t.Error("Protected segment was removed")
	}
}

// TestRetentionByRunCount checks that exceeding the run-count limit prunes
// the oldest runs' segments only.
func TestRetentionByRunCount(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	oldest := time.Now().Add(-30 * 24 * time.Hour).UTC().Truncate(time.Second)
	newer := time.Now().Add(-20 * 24 * time.Hour).UTC().Truncate(time.Second)

	oldestPath := writeSegment(t, tempDir, "sift-journal-20250601-000000-000.jsonl", makeRunEvents("run-oldest", oldest, 2))
	newerPath := writeSegment(t, tempDir, "sift-journal-20250701-000000-000.jsonl", makeRunEvents("run-newer", newer, 2))
	backdate(t, oldestPath, 30*24*time.Hour)
	backdate(t, newerPath, 20*24*time.Hour)

	config := Config{
		Directory:        tempDir,
		RetentionRuns:    1,
		MinRetentionDays: 7,
	}

	rm := NewRetentionManager(config)
	result, err := rm.Prune(nil)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	if len(result.PrunedSegments) != 1 {
		t.Fatalf("Expected exactly one pruned segment, got %v", result.PrunedSegments)
	}
	if _, err := os.Stat(oldestPath); !os.IsNotExist(err) {
		t.Error("Oldest segment should have been pruned")
	}
	if _, err := os.Stat(newerPath); err != nil {
		t.Error("Newer segment should have been kept")
	}
}

// TestActiveLogNeverPruned checks that the active journal is never a
// pruning candidate regardless of its age.
func TestActiveLogNeverPruned(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	config := Config{
		Directory:        tempDir,
		RetentionDays:    30,
		MinRetentionDays: 7,
	}

	writer, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	oldStart := time.Now().Add(-90 * 24 * time.Hour).UTC().Truncate(time.Second)
	for _, event := range makeRunEvents("run-ancient", oldStart, 1) {
		if err := writer.WriteEvent(event); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	activePath := filepath.Join(tempDir, activeLogName)
	backdate(t, activePath, 90*24*time.Hour)

	rm := NewRetentionManager(config)
	toPrune, err := rm.CheckRetention()
	if err != nil {
		t.Fatalf("CheckRetention failed: %v", err)
	}
	if len(toPrune) != 0 {
		t.Fatalf("Active journal must never be pruned, got %v", toPrune)
	}
}

package journal

import (
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"
)

// dryRunEvents builds a dry-run record: plans only, no transfers.
func dryRunEvents(runID RunID, start time.Time) []Event {
	return []Event{
		{
			Timestamp: start,
			RunID:     runID,
			EventType: EventRunStart,
			Status:    StatusSuccess,
			Metadata:  map[string]string{"source": "/downloads", "mode": "move", "dryRun": "true"},
		},
		{
			Timestamp: start.Add(1 * time.Second),
			RunID:     runID,
			EventType: EventItemPlanned,
			Status:    StatusSuccess,
			Source:    "/downloads/a.jpg",
			Target:    "/media/a.jpg",
			Category:  "IMAGE_VIDEO",
			Metadata:  map[string]string{"mode": "move"},
		},
		{
			Timestamp: start.Add(2 * time.Second),
			RunID:     runID,
			EventType: EventRunEnd,
			Status:    StatusSuccess,
			Metadata: map[string]string{
				"status":    string(RunStatusCompleted),
				"total":     "1",
				"processed": "1",
				"moved":     "0",
				"copied":    "0",
				"failed":    "0",
			},
		},
	}
}

// movedRunEvents builds a completed move run with explicit categories.
func movedRunEvents(runID RunID, start time.Time, categories []string) []Event {
	events := []Event{{
		Timestamp: start,
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata:  map[string]string{"source": "/downloads", "mode": "move"},
	}}
	for i, cat := range categories {
		events = append(events, Event{
			Timestamp: start.Add(time.Duration(i+1) * time.Second),
			RunID:     runID,
			EventType: EventItemMoved,
			Status:    StatusSuccess,
			Source:    "/downloads/item",
			Target:    "/dest/item",
			Category:  cat,
		})
	}
	events = append(events, Event{
		Timestamp: start.Add(time.Duration(len(categories)+1) * time.Second),
		RunID:     runID,
		EventType: EventRunEnd,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"status":    string(RunStatusCompleted),
			"total":     strconv.Itoa(len(categories)),
			"processed": strconv.Itoa(len(categories)),
			"moved":     strconv.Itoa(len(categories)),
			"copied":    "0",
			"failed":    "0",
		},
	})
	return events
}

// TestAggregateTotals checks whole-journal aggregation across run kinds.
func TestAggregateTotals(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t1 := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)
	t3 := time.Date(2025, 8, 3, 10, 0, 0, 0, time.UTC)

	writeSegment(t, tempDir, "sift-journal-20250801-100000-000.jsonl",
		movedRunEvents("run-a", t1, []string{"DOCUMENT", "IMAGE_VIDEO"}))
	writeSegment(t, tempDir, "sift-journal-20250802-100000-000.jsonl",
		cancelledRunEvents("run-b", t2)) // 1 copied AUDIO, 1 failed
	writeSegment(t, tempDir, activeLogName, dryRunEvents("run-c", t3))

	totals, err := AggregateTotals(tempDir, TotalsOptions{})
	if err != nil {
		t.Fatalf("AggregateTotals failed: %v", err)
	}

	if totals.Runs != 2 {
		t.Errorf("Runs: expected 2, got %d", totals.Runs)
	}
	if totals.DryRuns != 1 {
		t.Errorf("DryRuns: expected 1, got %d", totals.DryRuns)
	}
	if totals.Moved != 2 || totals.Copied != 1 || totals.Failed != 1 {
		t.Errorf("Counts: got moved=%d copied=%d failed=%d", totals.Moved, totals.Copied, totals.Failed)
	}

	wantCategories := map[string]int{"DOCUMENT": 1, "IMAGE_VIDEO": 1, "AUDIO": 1}
	if !reflect.DeepEqual(totals.ByCategory, wantCategories) {
		t.Errorf("ByCategory: expected %v, got %v", wantCategories, totals.ByCategory)
	}

	if !totals.FirstRun.Equal(t1) {
		t.Errorf("FirstRun: expected %v, got %v", t1, totals.FirstRun)
	}
	if !totals.LastRun.Equal(t3) {
		t.Errorf("LastRun: expected %v, got %v", t3, totals.LastRun)
	}
}

// TestAggregateTotalsSince checks the time filter.
func TestAggregateTotalsSince(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t1 := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)

	writeSegment(t, tempDir, "sift-journal-20250701-100000-000.jsonl",
		movedRunEvents("run-old", t1, []string{"DOCUMENT"}))
	writeSegment(t, tempDir, activeLogName,
		movedRunEvents("run-new", t2, []string{"AUDIO"}))

	since := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	totals, err := AggregateTotals(tempDir, TotalsOptions{Since: &since})
	if err != nil {
		t.Fatalf("AggregateTotals failed: %v", err)
	}

	if totals.Runs != 1 {
		t.Errorf("Runs: expected 1, got %d", totals.Runs)
	}
	if totals.Moved != 1 {
		t.Errorf("Moved: expected 1, got %d", totals.Moved)
	}
	if _, ok := totals.ByCategory["DOCUMENT"]; ok {
		t.Error("Old run's categories should be excluded")
	}
	if !totals.FirstRun.Equal(t2) {
		t.Errorf("FirstRun: expected %v, got %v", t2, totals.FirstRun)
	}
}

// TestFilterTopN checks top-N category selection and tie ordering.
func TestFilterTopN(t *testing.T) {
	counts := map[string]int{"DOCUMENT": 5, "AUDIO": 3, "OTHER": 1}

	top := filterTopN(counts, 2)
	if !reflect.DeepEqual(top, map[string]int{"DOCUMENT": 5, "AUDIO": 3}) {
		t.Errorf("Top 2: got %v", top)
	}

	all := filterTopN(counts, 0)
	if !reflect.DeepEqual(all, counts) {
		t.Errorf("TopN 0 should return all, got %v", all)
	}

	tied := filterTopN(map[string]int{"B": 2, "A": 2}, 1)
	if !reflect.DeepEqual(tied, map[string]int{"A": 2}) {
		t.Errorf("Tie should break by key ascending, got %v", tied)
	}
}

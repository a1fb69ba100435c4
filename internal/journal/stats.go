package journal

import (
	"fmt"
	"sort"
	"time"
)

// Totals contains aggregate metrics across recorded runs.
type Totals struct {
	Runs       int            // Completed or in-progress organize runs
	DryRuns    int            // Runs that only planned transfers
	Moved      int            // Items moved across all runs
	Copied     int            // Items copied across all runs
	Failed     int            // Item failures across all runs
	ByCategory map[string]int // Successful transfers per category (top N)
	FirstRun   time.Time      // Earliest run timestamp
	LastRun    time.Time      // Most recent run timestamp
}

// TotalsOptions configures totals aggregation.
type TotalsOptions struct {
	Since *time.Time // Count only runs starting after this time
	TopN  int        // Number of top categories to keep (0 = all)
}

// AggregateTotals computes metrics across the whole journal. Events are
// read once and grouped per run, so the cost is one pass over all
// segments.
func AggregateTotals(logDir string, opts TotalsOptions) (*Totals, error) {
	reader := NewReader(logDir)

	events, err := reader.readAllEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	totals := &Totals{ByCategory: make(map[string]int)}

	include := make(map[RunID]bool)
	for _, run := range reader.extractRunInfos(events) {
		if opts.Since != nil && run.StartTime.Before(*opts.Since) {
			continue
		}
		include[run.RunID] = true

		if run.DryRun {
			totals.DryRuns++
		} else {
			totals.Runs++
		}

		if totals.FirstRun.IsZero() || run.StartTime.Before(totals.FirstRun) {
			totals.FirstRun = run.StartTime
		}
		if totals.LastRun.IsZero() || run.StartTime.After(totals.LastRun) {
			totals.LastRun = run.StartTime
		}

		totals.Moved += run.Summary.Moved
		totals.Copied += run.Summary.Copied
		totals.Failed += run.Summary.Failed
	}

	categoryCounts := make(map[string]int)
	for _, event := range events {
		if !include[event.RunID] {
			continue
		}
		if event.EventType != EventItemMoved && event.EventType != EventItemCopied {
			continue
		}
		if event.Category != "" {
			categoryCounts[event.Category]++
		}
	}

	totals.ByCategory = filterTopN(categoryCounts, opts.TopN)

	return totals, nil
}

// filterTopN returns the top n entries from a map by value. If n <= 0 all
// entries are returned.
func filterTopN(counts map[string]int, n int) map[string]int {
	if n <= 0 || len(counts) <= n {
		result := make(map[string]int, len(counts))
		for k, v := range counts {
			result[k] = v
		}
		return result
	}

	type kv struct {
		key   string
		value int
	}
	var sorted []kv
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		// Value descending, key ascending for stable results.
		if sorted[i].value != sorted[j].value {
			return sorted[i].value > sorted[j].value
		}
		return sorted[i].key < sorted[j].key
	})

	result := make(map[string]int, n)
	for i := 0; i < n && i < len(sorted); i++ {
		result[sorted[i].key] = sorted[i].value
	}

	return result
}

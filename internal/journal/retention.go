package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RetentionManager handles journal retention and pruning logic.
type RetentionManager struct {
	config Config
	reader *Reader
}

// NewRetentionManager creates a RetentionManager with the given configuration.
func NewRetentionManager(config Config) *RetentionManager {
	return &RetentionManager{
		config: config,
		reader: NewReader(config.Directory),
	}
}

// SegmentRunInfo describes one segment and the runs it contains.
type SegmentRunInfo struct {
	Filename     string
	FilePath     string
	Size         int64
	ModTime      time.Time
	RunIDs       []RunID
	OldestRunAge time.Duration // Age of the oldest run in this segment
	NewestRunAge time.Duration // Age of the newest run in this segment
}

// PruneResult contains the result of a pruning operation.
type PruneResult struct {
	PrunedSegments  []string // Filenames of pruned segments
	PrunedRuns      []RunID  // Run IDs that were pruned
	TotalBytesFreed int64
}

// CheckRetention returns the segments that exceed the retention limits.
// The active log is never a candidate, and segments holding runs younger
// than MinRetentionDays are protected.
func (rm *RetentionManager) CheckRetention() ([]SegmentRunInfo, error) {
	if rm.config.RetentionDays == 0 && rm.config.RetentionRuns == 0 {
		return nil, nil
	}

	segmentInfos, err := rm.getSegmentRunInfos()
	if err != nil {
		return nil, fmt.Errorf("failed to get segment info: %w", err)
	}
	if len(segmentInfos) == 0 {
		return nil, nil
	}

	now := time.Now()
	minRetentionDays := rm.config.MinRetentionDays
	if minRetentionDays == 0 {
		minRetentionDays = 7
	}
	minRetention := time.Duration(minRetentionDays) * 24 * time.Hour

	var toPrune []SegmentRunInfo

	if rm.config.RetentionDays > 0 {
		retention := time.Duration(rm.config.RetentionDays) * 24 * time.Hour
		for _, seg := range segmentInfos {
			if seg.Filename == activeLogName {
				continue
			}
			if now.Sub(seg.ModTime) <= retention {
				continue
			}
			// Protect segments that still hold young runs.
			if seg.NewestRunAge < minRetention {
				continue
			}
			toPrune = append(toPrune, seg)
		}
	}

	if rm.config.RetentionRuns > 0 {
		runs, err := rm.reader.ListRuns()
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) > rm.config.RetentionRuns {
			sort.Slice(runs, func(i, j int) bool {
				return runs[i].StartTime.Before(runs[j].StartTime)
			})

			excess := len(runs) - rm.config.RetentionRuns
			prunable := make(map[RunID]bool)
			for i := 0; i < excess; i++ {
				if now.Sub(runs[i].StartTime) >= minRetention {
					prunable[runs[i].RunID] = true
				}
			}

			// A segment goes only when every run in it is prunable.
			for _, seg := range segmentInfos {
				if seg.Filename == activeLogName || len(seg.RunIDs) == 0 {
					continue
				}
				if seg.NewestRunAge < minRetention {
					continue
				}
				all := true
				for _, runID := range seg.RunIDs {
					if !prunable[runID] {
						all = false
						break
					}
				}
				if all && !containsSegment(toPrune, seg.Filename) {
					toPrune = append(toPrune, seg)
				}
			}
		}
	}

	return toPrune, nil
}

func containsSegment(segs []SegmentRunInfo, filename string) bool {
	for _, s := range segs {
		if s.Filename == filename {
			return true
		}
	}
	return false
}

// Prune removes segments that exceed retention limits, recording a
// RETENTION_PRUNE event for each before deleting it.
func (rm *RetentionManager) Prune(writer *Writer) (*PruneResult, error) {
	toPrune, err := rm.CheckRetention()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{
		PrunedSegments: []string{},
		PrunedRuns:     []RunID{},
	}
	if len(toPrune) == 0 {
		return result, nil
	}

	for _, seg := range toPrune {
		if writer != nil {
			event := newRetentionPruneEvent(seg.Filename, seg.RunIDs)
			if err := writer.WriteEvent(event); err != nil {
				return result, fmt.Errorf("failed to write RETENTION_PRUNE event: %w", err)
			}
		}

		if err := os.Remove(seg.FilePath); err != nil {
			return result, fmt.Errorf("failed to remove segment %s: %w", seg.Filename, err)
		}

		result.PrunedSegments = append(result.PrunedSegments, seg.Filename)
		result.PrunedRuns = append(result.PrunedRuns, seg.RunIDs...)
		result.TotalBytesFreed += seg.Size
	}

	// Segments are already gone; an index failure is only a warning.
	if err := rm.updateIndexAfterPrune(result.PrunedSegments); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to update index after prune: %v\n", err)
	}

	return result, nil
}

// getSegmentRunInfos collects size, age, and run membership for every
// journal file.
func (rm *RetentionManager) getSegmentRunInfos() ([]SegmentRunInfo, error) {
	logFiles, err := GetAllLogFiles(rm.config.Directory)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var infos []SegmentRunInfo

	for _, filePath := range logFiles {
		info, err := os.Stat(filePath)
		if err != nil {
			continue
		}

		segInfo := SegmentRunInfo{
			Filename: filepath.Base(filePath),
			FilePath: filePath,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		}

		events, err := rm.reader.readEventsFromFile(filePath)
		if err != nil {
			// Unreadable segment: keep it listed with no run info.
			infos = append(infos, segInfo)
			continue
		}

		runIDSet := make(map[RunID]bool)
		var oldestRunTime, newestRunTime time.Time

		for _, event := range events {
			if event.RunID == "" {
				continue
			}
			if !runIDSet[event.RunID] {
				runIDSet[event.RunID] = true
				segInfo.RunIDs = append(segInfo.RunIDs, event.RunID)
			}

			if event.EventType == EventRunStart {
				if oldestRunTime.IsZero() || event.Timestamp.Before(oldestRunTime) {
					oldestRunTime = event.Timestamp
				}
				if newestRunTime.IsZero() || event.Timestamp.After(newestRunTime) {
					newestRunTime = event.Timestamp
				}
			}
		}

		if !oldestRunTime.IsZero() {
			segInfo.OldestRunAge = now.Sub(oldestRunTime)
		}
		if !newestRunTime.IsZero() {
			segInfo.NewestRunAge = now.Sub(newestRunTime)
		}

		infos = append(infos, segInfo)
	}

	return infos, nil
}

// updateIndexAfterPrune removes pruned segments from the index.
func (rm *RetentionManager) updateIndexAfterPrune(prunedSegments []string) error {
	index, err := LoadIndex(rm.config.Directory)
	if err != nil {
		// No index to update.
		return nil
	}

	pruned := make(map[string]bool)
	for _, seg := range prunedSegments {
		pruned[seg] = true
	}

	var remaining []SegmentInfo
	for _, seg := range index.Segments {
		if !pruned[seg.Filename] {
			remaining = append(remaining, seg)
		}
	}

	index.Segments = remaining
	index.LastUpdated = time.Now()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	indexPath := filepath.Join(rm.config.Directory, indexName)
	if err := os.WriteFile(indexPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	return nil
}

// newRetentionPruneEvent creates a RETENTION_PRUNE system event.
func newRetentionPruneEvent(filename string, prunedRunIDs []RunID) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		RunID:     "",
		EventType: EventRetentionPrune,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"prunedSegment":  filename,
			"prunedRunCount": fmt.Sprintf("%d", len(prunedRunIDs)),
		},
	}
}

package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// activeLogName is the filename of the journal currently being written.
	activeLogName = "sift-journal.jsonl"
	// segmentPrefix prefixes rotated segment filenames.
	segmentPrefix = "sift-journal-"
	// indexName is the filename of the segment index.
	indexName = "sift-journal-index.json"
)

// RotationIndex tracks all journal segments for discovery.
type RotationIndex struct {
	Segments    []SegmentInfo `json:"segments"`
	ActiveLog   string        `json:"activeLog"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// SegmentInfo contains metadata about a rotated journal segment.
type SegmentInfo struct {
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int64     `json:"size"`
}

// RotationManager handles journal rotation logic.
type RotationManager struct {
	config Config

	// Timestamp of the last generated segment name. Names must be unique
	// and sort in rotation order even when rotations land inside the same
	// millisecond.
	lastName time.Time
}

// NewRotationManager creates a RotationManager with the given configuration.
func NewRotationManager(config Config) *RotationManager {
	return &RotationManager{config: config}
}

// NeedsRotation checks if the active journal needs rotation based on size
// or time.
func (rm *RotationManager) NeedsRotation(logPath string) (bool, error) {
	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat journal: %w", err)
	}

	if rm.config.RotationSize > 0 && info.Size() >= rm.config.RotationSize {
		return true, nil
	}

	if rm.config.RotationPeriod != "" {
		needsTimeRotation, err := rm.needsTimeBasedRotation(info.ModTime())
		if err != nil {
			return false, err
		}
		if needsTimeRotation {
			return true, nil
		}
	}

	return false, nil
}

// needsTimeBasedRotation checks if rotation is needed based on time period.
func (rm *RotationManager) needsTimeBasedRotation(lastModTime time.Time) (bool, error) {
	now := time.Now()

	switch rm.config.RotationPeriod {
	case "daily":
		lastDay := lastModTime.Truncate(24 * time.Hour)
		today := now.Truncate(24 * time.Hour)
		return lastDay.Before(today), nil

	case "weekly":
		_, lastWeek := lastModTime.ISOWeek()
		_, currentWeek := now.ISOWeek()
		return lastModTime.Year() != now.Year() || lastWeek != currentWeek, nil

	case "":
		return false, nil

	default:
		return false, fmt.Errorf("unknown rotation period: %s", rm.config.RotationPeriod)
	}
}

// GenerateRotatedFilename creates a filename for a rotated segment.
// Format: sift-journal-YYYYMMDD-HHMMSS-NNN.jsonl with NNN the
// millisecond. When rotations land inside the same millisecond the
// timestamp is nudged forward, so segment names stay unique and sort in
// rotation order.
func (rm *RotationManager) GenerateRotatedFilename() string {
	now := time.Now().Truncate(time.Millisecond)
	if !now.After(rm.lastName) {
		now = rm.lastName.Add(time.Millisecond)
	}
	rm.lastName = now

	return fmt.Sprintf("%s%s-%03d.jsonl", segmentPrefix, now.Format("20060102-150405"), now.Nanosecond()/1000000)
}

// RotateWithFilename performs the rotation with a specific filename. Used
// when the name must match a ROTATION event already written.
func (rm *RotationManager) RotateWithFilename(logPath, rotatedFilename string) (string, error) {
	dir := filepath.Dir(logPath)
	rotatedPath := filepath.Join(dir, rotatedFilename)

	info, err := os.Stat(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat journal for rotation: %w", err)
	}

	if err := os.Rename(logPath, rotatedPath); err != nil {
		return "", fmt.Errorf("failed to rename journal during rotation: %w", err)
	}

	// The rotation itself succeeded; the index can be rebuilt from the
	// filesystem, so an index failure is only a warning.
	if err := rm.updateIndex(dir, rotatedFilename, info.Size()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to update journal index: %v\n", err)
	}

	return rotatedPath, nil
}

// updateIndex updates or creates the segment index file.
func (rm *RotationManager) updateIndex(logDir, rotatedFilename string, size int64) error {
	indexPath := filepath.Join(logDir, indexName)

	index, err := rm.loadIndex(indexPath)
	if err != nil {
		// Missing or corrupt index: start a fresh one.
		index = &RotationIndex{
			Segments:  []SegmentInfo{},
			ActiveLog: activeLogName,
		}
	}

	index.Segments = append(index.Segments, SegmentInfo{
		Filename:  rotatedFilename,
		CreatedAt: time.Now(),
		Size:      size,
	})
	index.LastUpdated = time.Now()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.WriteFile(indexPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	return nil
}

// loadIndex loads the segment index from disk.
func (rm *RotationManager) loadIndex(indexPath string) (*RotationIndex, error) {
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, err
	}

	var index RotationIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}

	return &index, nil
}

// LoadIndex loads the segment index from the journal directory.
func LoadIndex(logDir string) (*RotationIndex, error) {
	data, err := os.ReadFile(filepath.Join(logDir, indexName))
	if err != nil {
		return nil, err
	}

	var index RotationIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}

	return &index, nil
}

// DiscoverSegments finds all rotated segments in the directory by naming
// convention. Used to rebuild the index or when the index is missing.
func DiscoverSegments(logDir string) ([]string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, ".jsonl") && name != activeLogName {
			segments = append(segments, name)
		}
	}

	// Timestamped names sort chronologically (oldest first).
	sort.Strings(segments)

	return segments, nil
}

// GetAllLogFiles returns all journal files in chronological order, rotated
// segments first, then the active log if it exists.
func GetAllLogFiles(logDir string) ([]string, error) {
	segments, err := DiscoverSegments(logDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, seg := range segments {
		files = append(files, filepath.Join(logDir, seg))
	}

	activeLog := filepath.Join(logDir, activeLogName)
	if _, err := os.Stat(activeLog); err == nil {
		files = append(files, activeLog)
	}

	return files, nil
}

// newRotationEvent creates the ROTATION event written to the old segment
// before switching files.
func newRotationEvent(runID RunID, oldFile, newFile string) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRotation,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"previousFile": oldFile,
			"newFile":      newFile,
		},
	}
}

package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// IntegrityStatus represents the result of a journal integrity check.
type IntegrityStatus string

const (
	// IntegrityOK indicates the journal file is valid and complete.
	IntegrityOK IntegrityStatus = "OK"
	// IntegrityMissing indicates the journal file does not exist.
	IntegrityMissing IntegrityStatus = "MISSING"
	// IntegrityCorrupt indicates the journal file has corruption (e.g., truncated last line).
	IntegrityCorrupt IntegrityStatus = "CORRUPT"
	// IntegrityEmpty indicates the journal file exists but is empty.
	IntegrityEmpty IntegrityStatus = "EMPTY"
)

// IntegrityResult contains the result of a journal integrity check.
type IntegrityResult struct {
	Status       IntegrityStatus // Overall integrity status
	FilePath     string          // Path to the journal file checked
	TotalLines   int             // Number of valid lines in the file
	ErrorMessage string          // Description of any error found
	ErrorLine    int             // Line number where error was found (0 if N/A)
}

// Reader reads and parses journal events from log files, transparently
// spanning rotated segments.
type Reader struct {
	logDir string
}

// NewReader creates a Reader for the given journal directory.
func NewReader(logDir string) *Reader {
	return &Reader{logDir: logDir}
}

// ListRuns returns all recorded runs with summary information, oldest
// first.
func (r *Reader) ListRuns() ([]RunInfo, error) {
	events, err := r.readAllEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return r.extractRunInfos(events), nil
}

// GetRun returns all events for a specific run.
func (r *Reader) GetRun(runID RunID) ([]Event, error) {
	events, err := r.readAllEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	var runEvents []Event
	for _, event := range events {
		if event.RunID == runID {
			runEvents = append(runEvents, event)
		}
	}

	if len(runEvents) == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	return runEvents, nil
}

// GetLatestRun returns the most recent run by start timestamp.
func (r *Reader) GetLatestRun() (*RunInfo, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found")
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})

	return &runs[0], nil
}

// readAllEvents reads all events from all segments in chronological order.
func (r *Reader) readAllEvents() ([]Event, error) {
	logFiles, err := GetAllLogFiles(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal files: %w", err)
	}
	if len(logFiles) == 0 {
		return []Event{}, nil
	}

	var allEvents []Event
	for _, logFile := range logFiles {
		events, err := r.readEventsFromFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read events from %s: %w", logFile, err)
		}
		allEvents = append(allEvents, events...)
	}

	return allEvents, nil
}

// readEventsFromFile reads all events from a single journal file.
func (r *Reader) readEventsFromFile(filePath string) ([]Event, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)

	// Long lines are possible with deep paths; raise the token limit.
	const maxScanTokenSize = 1024 * 1024 // 1MB
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event, err := UnmarshalLine(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}
		events = append(events, *event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading journal file: %w", err)
	}

	return events, nil
}

// extractRunInfos groups events by run ID and builds per-run summaries.
// System events with no run ID are skipped.
func (r *Reader) extractRunInfos(events []Event) []RunInfo {
	runEvents := make(map[RunID][]Event)
	for _, event := range events {
		if event.RunID == "" {
			continue
		}
		runEvents[event.RunID] = append(runEvents[event.RunID], event)
	}

	var runs []RunInfo
	for runID, events := range runEvents {
		runs = append(runs, r.buildRunInfo(runID, events))
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})

	return runs
}

// buildRunInfo constructs a RunInfo from one run's events. Item events
// are tallied as they appear; a RUN_END event's counts are authoritative
// and overwrite the tally.
func (r *Reader) buildRunInfo(runID RunID, events []Event) RunInfo {
	info := RunInfo{
		RunID:  runID,
		Status: RunStatusInProgress, // Until a RUN_END shows up
	}

	for _, event := range events {
		switch event.EventType {
		case EventRunStart:
			info.StartTime = event.Timestamp
			if event.Metadata != nil {
				info.Source = event.Metadata["source"]
				info.Mode = event.Metadata["mode"]
				info.DryRun = event.Metadata["dryRun"] == "true"
			}

		case EventRunEnd:
			endTime := event.Timestamp
			info.EndTime = &endTime
			if event.Metadata != nil {
				if status, ok := event.Metadata["status"]; ok {
					info.Status = RunStatus(status)
				}
				info.Summary = parseSummaryFromMetadata(event.Metadata)
			}

		case EventItemMoved:
			info.Summary.Processed++
			info.Summary.Moved++

		case EventItemCopied:
			info.Summary.Processed++
			info.Summary.Copied++

		case EventItemPlanned:
			info.Summary.Processed++

		case EventItemFailed:
			info.Summary.Processed++
			info.Summary.Failed++
		}
	}

	return info
}

// parseSummaryFromMetadata parses RunSummary counts from RUN_END metadata.
func parseSummaryFromMetadata(metadata map[string]string) RunSummary {
	summary := RunSummary{}

	if v, ok := metadata["total"]; ok {
		summary.Total, _ = strconv.Atoi(v)
	}
	if v, ok := metadata["processed"]; ok {
		summary.Processed, _ = strconv.Atoi(v)
	}
	if v, ok := metadata["moved"]; ok {
		summary.Moved, _ = strconv.Atoi(v)
	}
	if v, ok := metadata["copied"]; ok {
		summary.Copied, _ = strconv.Atoi(v)
	}
	if v, ok := metadata["failed"]; ok {
		summary.Failed, _ = strconv.Atoi(v)
	}

	return summary
}

// ActiveLogPath returns the path to the active journal file.
func (r *Reader) ActiveLogPath() string {
	return filepath.Join(r.logDir, activeLogName)
}

// CheckIntegrity validates the integrity of the active journal file.
func (r *Reader) CheckIntegrity() (*IntegrityResult, error) {
	return r.CheckFileIntegrity(r.ActiveLogPath())
}

// CheckFileIntegrity validates a specific journal file: it must exist, be
// readable, hold one valid JSON event per line, and end with a newline.
func (r *Reader) CheckFileIntegrity(filePath string) (*IntegrityResult, error) {
	result := &IntegrityResult{FilePath: filePath}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		result.Status = IntegrityMissing
		result.ErrorMessage = "journal file does not exist"
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat journal file: %w", err)
	}

	if fileInfo.Size() == 0 {
		result.Status = IntegrityEmpty
		result.ErrorMessage = "journal file is empty"
		return result, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	validLines, corruptLine, corruptErr := validateJSONLines(file)
	result.TotalLines = validLines

	if corruptErr != nil {
		result.Status = IntegrityCorrupt
		result.ErrorLine = corruptLine
		result.ErrorMessage = corruptErr.Error()
		return result, nil
	}

	result.Status = IntegrityOK
	return result, nil
}

// validateJSONLines checks each line parses as a journal event. Returns
// the count of valid lines and, on corruption, the offending line number.
func validateJSONLines(file *os.File) (validLines int, corruptLine int, err error) {
	scanner := bufio.NewScanner(file)

	const maxScanTokenSize = 1024 * 1024 // 1MB
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if !json.Valid(line) {
			return validLines, lineNum, fmt.Errorf("invalid JSON at line %d", lineNum)
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return validLines, lineNum, fmt.Errorf("failed to parse event at line %d: %w", lineNum, err)
		}

		validLines++
	}

	if err := scanner.Err(); err != nil {
		return validLines, lineNum, fmt.Errorf("error reading file: %w", err)
	}

	if err := checkLastLineComplete(file); err != nil {
		return validLines, lineNum, err
	}

	return validLines, 0, nil
}

// checkLastLineComplete verifies the file ends with a newline. A missing
// trailing newline means the last write was cut short.
func checkLastLineComplete(file *os.File) error {
	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if fileInfo.Size() == 0 {
		return nil
	}

	if _, err := file.Seek(-1, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	lastByte := make([]byte, 1)
	if _, err := file.Read(lastByte); err != nil {
		return fmt.Errorf("failed to read last byte: %w", err)
	}

	if lastByte[0] != '\n' {
		return fmt.Errorf("truncated last line: file does not end with newline")
	}

	return nil
}

// CheckAllSegmentsIntegrity validates every journal file, returning one
// result per segment.
func (r *Reader) CheckAllSegmentsIntegrity() ([]IntegrityResult, error) {
	logFiles, err := GetAllLogFiles(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal files: %w", err)
	}

	if len(logFiles) == 0 {
		return []IntegrityResult{{
			Status:       IntegrityMissing,
			FilePath:     r.ActiveLogPath(),
			ErrorMessage: "no journal files found",
		}}, nil
	}

	var results []IntegrityResult
	for _, logFile := range logFiles {
		result, err := r.CheckFileIntegrity(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to check integrity of %s: %w", logFile, err)
		}
		results = append(results, *result)
	}

	return results, nil
}

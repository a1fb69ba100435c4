package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Writer handles all write operations to the run journal.
// It implements append-only semantics with fail-fast behavior: any write,
// flush, or sync error is returned immediately so a run never proceeds
// with an unrecorded outcome.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	writer     *bufio.Writer
	logPath    string
	currentRun *RunID
	config     Config
	rotation   *RotationManager
}

// New creates a Writer with the given configuration. It creates the
// journal directory if missing and opens the active log for appending.
// A brand-new log file starts with a LOG_INITIALIZED event.
func New(config Config) (*Writer, error) {
	if err := os.MkdirAll(config.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	logPath := filepath.Join(config.Directory, activeLogName)

	isNewLog := false
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		isNewLog = true
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	w := &Writer{
		file:     file,
		writer:   bufio.NewWriter(file),
		logPath:  logPath,
		config:   config,
		rotation: NewRotationManager(config),
	}

	if isNewLog {
		if err := w.writeLogInitialized(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write LOG_INITIALIZED event: %w", err)
		}
	}

	return w, nil
}

// NewRunID generates a new UUID v4 run identifier.
func NewRunID() (RunID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate run ID: %w", err)
	}
	return RunID(id.String()), nil
}

// StartRun begins a new run record and writes the RUN_START event.
func (w *Writer) StartRun(source, mode string, dryRun bool) (RunID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID, err := NewRunID()
	if err != nil {
		return "", err
	}

	meta := map[string]string{
		"source": source,
		"mode":   mode,
	}
	if dryRun {
		meta["dryRun"] = "true"
	}

	event := Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata:  meta,
	}

	if err := w.writeEventLocked(event); err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	return runID, nil
}

// RecordMoved records an ITEM_MOVED event for a successful move.
func (w *Writer) RecordMoved(source, target, category string) error {
	return w.recordItem(Event{
		EventType: EventItemMoved,
		Status:    StatusSuccess,
		Source:    source,
		Target:    target,
		Category:  category,
	})
}

// RecordCopied records an ITEM_COPIED event for a successful copy.
func (w *Writer) RecordCopied(source, target, category string) error {
	return w.recordItem(Event{
		EventType: EventItemCopied,
		Status:    StatusSuccess,
		Source:    source,
		Target:    target,
		Category:  category,
	})
}

// RecordPlanned records an ITEM_PLANNED event for a dry-run resolution.
// The mode the item would have been transferred with goes in the metadata.
func (w *Writer) RecordPlanned(source, target, category, mode string) error {
	return w.recordItem(Event{
		EventType: EventItemPlanned,
		Status:    StatusSuccess,
		Source:    source,
		Target:    target,
		Category:  category,
		Metadata:  map[string]string{"mode": mode},
	})
}

// RecordFailed records an ITEM_FAILED event; the run continues past it.
func (w *Writer) RecordFailed(source, category, errType, errMsg string) error {
	return w.recordItem(Event{
		EventType: EventItemFailed,
		Status:    StatusFailure,
		Source:    source,
		Category:  category,
		Error: &ErrorDetails{
			Type:    errType,
			Message: errMsg,
		},
	})
}

// recordItem stamps and writes a per-item event under the active run.
func (w *Writer) recordItem(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return fmt.Errorf("no active run: call StartRun first")
	}

	event.Timestamp = time.Now().UTC()
	event.RunID = *w.currentRun

	return w.writeEventLocked(event)
}

// EndRun records the run's terminal status and summary counts.
func (w *Writer) EndRun(runID RunID, status RunStatus, summary RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event := Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunEnd,
		Status:    runStatusToEventStatus(status),
		Metadata: map[string]string{
			"status":    string(status),
			"total":     fmt.Sprintf("%d", summary.Total),
			"processed": fmt.Sprintf("%d", summary.Processed),
			"moved":     fmt.Sprintf("%d", summary.Moved),
			"copied":    fmt.Sprintf("%d", summary.Copied),
			"failed":    fmt.Sprintf("%d", summary.Failed),
		},
	}

	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write RUN_END event: %w", err)
	}

	w.currentRun = nil
	return nil
}

// runStatusToEventStatus converts RunStatus to the event-level Status.
// A cancelled run ended cleanly at the user's request, so it is not a
// failure.
func runStatusToEventStatus(status RunStatus) Status {
	if status == RunStatusFailed {
		return StatusFailure
	}
	return StatusSuccess
}

// WriteEvent writes a single journal event. It fails fast if the write
// cannot be completed.
func (w *Writer) WriteEvent(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.writeEventLocked(event)
}

// writeEventLocked marshals the event to a JSON line, appends it, and
// flushes and syncs to disk. It checks for rotation after writing.
func (w *Writer) writeEventLocked(event Event) error {
	data, err := event.MarshalLine()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if _, err := w.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event to disk: %w", err)
	}

	// ROTATION events skip the check to avoid recursing during rotation.
	if event.EventType != EventRotation {
		if err := w.checkAndRotate(); err != nil {
			return fmt.Errorf("failed to check/perform rotation: %w", err)
		}
	}

	return nil
}

// checkAndRotate rotates the active log when size or period limits are
// exceeded, writing a ROTATION event to the old segment first.
func (w *Writer) checkAndRotate() error {
	needsRotation, err := w.rotation.NeedsRotation(w.logPath)
	if err != nil {
		return err
	}
	if !needsRotation {
		return nil
	}

	// Name the segment once so the ROTATION event and the rename agree.
	rotatedFilename := w.rotation.GenerateRotatedFilename()

	var runID RunID
	if w.currentRun != nil {
		runID = *w.currentRun
	}
	rotationEvent := newRotationEvent(runID, filepath.Base(w.logPath), rotatedFilename)

	data, err := rotationEvent.MarshalLine()
	if err != nil {
		return fmt.Errorf("failed to marshal rotation event: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write rotation event: %w", err)
	}
	if _, err := w.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write rotation event newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush rotation event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync rotation event: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close file for rotation: %w", err)
	}

	if _, err := w.rotation.RotateWithFilename(w.logPath, rotatedFilename); err != nil {
		return fmt.Errorf("failed to rotate journal: %w", err)
	}

	file, err := os.OpenFile(w.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open new journal after rotation: %w", err)
	}

	w.file = file
	w.writer = bufio.NewWriter(file)

	return nil
}

// writeLogInitialized writes a LOG_INITIALIZED event when a new log file
// is created. System events carry no run ID.
func (w *Writer) writeLogInitialized() error {
	event := Event{
		Timestamp: time.Now().UTC(),
		RunID:     "",
		EventType: EventLogInitialized,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"logPath": w.logPath,
		},
	}

	data, err := event.MarshalLine()
	if err != nil {
		return fmt.Errorf("failed to marshal LOG_INITIALIZED event: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write LOG_INITIALIZED event: %w", err)
	}
	if _, err := w.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush LOG_INITIALIZED event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync LOG_INITIALIZED event: %w", err)
	}

	return nil
}

// CheckAndPruneRetention enforces the retention policy, removing segments
// that exceed it. Meant to be called on startup.
func (w *Writer) CheckAndPruneRetention() (*PruneResult, error) {
	rm := NewRetentionManager(w.config)
	return rm.Prune(w)
}

// Close flushes any buffered data and closes the journal file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	return nil
}

// CurrentRunID returns the active run ID, or nil outside a run.
func (w *Writer) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentRun
}

// LogPath returns the path to the active journal file.
func (w *Writer) LogPath() string {
	return w.logPath
}

// GetConfig returns the journal configuration.
func (w *Writer) GetConfig() Config {
	return w.config
}

// Package journal records organizer runs as an append-only JSONL event
// log: one run-start event, one event per item outcome, one run-end event.
// Segments rotate by size or period and old segments are pruned by a
// retention policy.
package journal

import "time"

// RunID is a unique identifier for a single organizer run, in UUID v4
// format: "xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx".
type RunID string

// EventType represents the type of journal event.
type EventType string

const (
	// Run lifecycle events
	EventRunStart EventType = "RUN_START"
	EventRunEnd   EventType = "RUN_END"

	// Per-item outcome events
	EventItemMoved   EventType = "ITEM_MOVED"
	EventItemCopied  EventType = "ITEM_COPIED"
	EventItemPlanned EventType = "ITEM_PLANNED"
	EventItemFailed  EventType = "ITEM_FAILED"

	// System events
	EventRotation       EventType = "ROTATION"
	EventRetentionPrune EventType = "RETENTION_PRUNE"
	EventLogInitialized EventType = "LOG_INITIALIZED"
)

// Status represents the outcome recorded on an event.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// RunStatus represents the terminal state of a run.
type RunStatus string

const (
	RunStatusInProgress RunStatus = "IN_PROGRESS"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusCancelled  RunStatus = "CANCELLED"
	RunStatusFailed     RunStatus = "FAILED"
)

// ErrorDetails carries the typed reason for a failed item.
type ErrorDetails struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Event is a single journal record for an item outcome or system event.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`          // RFC 3339
	RunID     RunID             `json:"runId"`              // Empty for system events
	EventType EventType         `json:"eventType"`          // Type of event
	Status    Status            `json:"status"`             // Outcome
	Source    string            `json:"source,omitempty"`   // Item path in the source folder
	Target    string            `json:"target,omitempty"`   // Final destination path
	Category  string            `json:"category,omitempty"` // Category assigned to the item
	Error     *ErrorDetails     `json:"error,omitempty"`    // Failure reason
	Metadata  map[string]string `json:"metadata,omitempty"` // Additional metadata
}

// RunSummary contains counts for a completed run.
type RunSummary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Moved     int `json:"moved"`
	Copied    int `json:"copied"`
	Failed    int `json:"failed"`
}

// RunInfo contains metadata and summary for one run.
type RunInfo struct {
	RunID     RunID      `json:"runId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Status    RunStatus  `json:"status"`
	Source    string     `json:"source"`
	Mode      string     `json:"mode"`
	DryRun    bool       `json:"dryRun,omitempty"`
	Summary   RunSummary `json:"summary"`
}

// Config holds configuration for the run journal.
type Config struct {
	Directory        string `json:"directory"`
	RotationSize     int64  `json:"rotationSizeBytes"` // Rotate when file exceeds this size
	RotationPeriod   string `json:"rotationPeriod"`    // "daily", "weekly", or ""
	RetentionDays    int    `json:"retentionDays"`     // 0 = unlimited
	RetentionRuns    int    `json:"retentionRuns"`     // 0 = unlimited
	MinRetentionDays int    `json:"minRetentionDays"`  // Default: 7
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Directory:        ".sift/journal",
		RotationSize:     10 * 1024 * 1024, // 10MB
		RotationPeriod:   "",               // No time-based rotation by default
		RetentionDays:    30,
		RetentionRuns:    0, // Unlimited
		MinRetentionDays: 7,
	}
}

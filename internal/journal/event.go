package journal

import (
	"encoding/json"
	"time"
)

// TimestampFormat is the time format used for journal event timestamps.
const TimestampFormat = time.RFC3339

// eventJSON is the internal representation for JSON marshaling/unmarshaling.
// It uses pointers for optional fields to properly handle omitempty.
type eventJSON struct {
	Timestamp string            `json:"timestamp"`
	RunID     RunID             `json:"runId"`
	EventType EventType         `json:"eventType"`
	Status    Status            `json:"status"`
	Source    *string           `json:"source,omitempty"`
	Target    *string           `json:"target,omitempty"`
	Category  *string           `json:"category,omitempty"`
	Error     *ErrorDetails     `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler for Event. Timestamps are written
// in RFC 3339 form and empty optional fields are omitted.
func (e Event) MarshalJSON() ([]byte, error) {
	ej := eventJSON{
		Timestamp: e.Timestamp.Format(TimestampFormat),
		RunID:     e.RunID,
		EventType: e.EventType,
		Status:    e.Status,
		Error:     e.Error,
		Metadata:  e.Metadata,
	}

	// Only include optional string fields if non-empty
	if e.Source != "" {
		ej.Source = &e.Source
	}
	if e.Target != "" {
		ej.Target = &e.Target
	}
	if e.Category != "" {
		ej.Category = &e.Category
	}

	return json.Marshal(ej)
}

// UnmarshalJSON implements json.Unmarshaler for Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	t, err := time.Parse(TimestampFormat, ej.Timestamp)
	if err != nil {
		return err
	}

	e.Timestamp = t
	e.RunID = ej.RunID
	e.EventType = ej.EventType
	e.Status = ej.Status
	e.Error = ej.Error
	e.Metadata = ej.Metadata

	if ej.Source != nil {
		e.Source = *ej.Source
	}
	if ej.Target != nil {
		e.Target = *ej.Target
	}
	if ej.Category != nil {
		e.Category = *ej.Category
	}

	return nil
}

// MarshalLine marshals an Event to a JSON line (no trailing newline).
func (e Event) MarshalLine() ([]byte, error) {
	return e.MarshalJSON()
}

// UnmarshalLine unmarshals a JSON line into an Event.
func UnmarshalLine(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

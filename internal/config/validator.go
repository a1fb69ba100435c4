package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"sift/internal/transfer"
)

// Severity represents the severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue represents a single validation finding.
type Issue struct {
	Field    string // settings field, e.g. "destinations.documents"
	Message  string
	Severity Severity
}

// ValidationResult collects every finding so the CLI can show them all
// at once instead of failing one field at a time.
type ValidationResult struct {
	Errors   []Issue
	Warnings []Issue
	Valid    bool // true if no errors (warnings are OK)
}

// ValidateSettings checks the settings shape and flags suspicious path
// arrangements. It never touches the filesystem; existence and
// writability are verified when a run starts.
func ValidateSettings(s *Settings) *ValidationResult {
	result := &ValidationResult{
		Errors:   []Issue{},
		Warnings: []Issue{},
	}

	if s.Source == "" {
		result.Errors = append(result.Errors, Issue{
			Field:    "source",
			Message:  "source must be set",
			Severity: SeverityError,
		})
	}

	if _, err := transfer.ParseMode(s.Mode); err != nil {
		result.Errors = append(result.Errors, Issue{
			Field:    "mode",
			Message:  fmt.Sprintf("mode must be %q or %q, got %q", transfer.Move, transfer.Copy, s.Mode),
			Severity: SeverityError,
		})
	}

	for _, slot := range s.Destinations.slots() {
		if slot.path == "" {
			result.Errors = append(result.Errors, Issue{
				Field:    "destinations." + slot.field,
				Message:  fmt.Sprintf("no folder set for %s", slot.category.Label()),
				Severity: SeverityError,
			})
		}
	}

	result.Warnings = append(result.Warnings, overlapWarnings(s)...)
	result.Valid = len(result.Errors) == 0

	return result
}

// overlapWarnings flags destinations that coincide with or nest inside
// the source (organized files would be picked up again on the next run)
// and a source nested inside a destination.
func overlapWarnings(s *Settings) []Issue {
	var warnings []Issue
	if s.Source == "" {
		return warnings
	}

	for _, slot := range s.Destinations.slots() {
		if slot.path == "" {
			continue
		}
		if !pathsOverlap(s.Source, slot.path) {
			continue
		}

		var msg string
		switch {
		case filepath.Clean(slot.path) == filepath.Clean(s.Source):
			msg = fmt.Sprintf("destination equals the source folder: %s", slot.path)
		case isWithin(s.Source, slot.path):
			msg = fmt.Sprintf("destination is inside the source folder: %s", slot.path)
		default:
			msg = fmt.Sprintf("source folder is inside this destination: %s", slot.path)
		}
		warnings = append(warnings, Issue{
			Field:    "destinations." + slot.field,
			Message:  msg,
			Severity: SeverityWarning,
		})
	}

	return warnings
}

// pathsOverlap reports whether one path equals or contains the other.
func pathsOverlap(a, b string) bool {
	cleanA := filepath.Clean(a)
	cleanB := filepath.Clean(b)

	if cleanA == cleanB {
		return true
	}
	return isWithin(a, b) || isWithin(b, a)
}

// isWithin reports whether child lives under parent.
func isWithin(parent, child string) bool {
	cleanParent := filepath.Clean(parent)
	cleanChild := filepath.Clean(child)
	return strings.HasPrefix(cleanChild, cleanParent+string(filepath.Separator))
}

// Package config handles settings persistence and validation for sift.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sift/internal/journal"
	"sift/internal/transfer"
	"sift/internal/watcher"
)

// ErrorType represents the type of configuration error.
type ErrorType string

const (
	FileNotFound    ErrorType = "FILE_NOT_FOUND"
	InvalidJSON     ErrorType = "INVALID_JSON"
	ValidationError ErrorType = "VALIDATION_ERROR"
)

// Error represents an error that occurred while loading or validating
// the settings file.
type Error struct {
	Type    ErrorType
	Path    string
	Message string
}

func (e *Error) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("settings file not found: %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in settings file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("settings validation error: %s", e.Message)
	default:
		return fmt.Sprintf("settings error: %s", e.Message)
	}
}

// Settings holds everything sift needs for a run: where to pick files
// up, how to transfer them, where each category lands, and the optional
// watch and journal sections.
type Settings struct {
	Source       string          `json:"source"`
	Mode         string          `json:"mode"` // "move" or "copy"
	Destinations Destinations    `json:"destinations"`
	Watch        *watcher.Config `json:"watch,omitempty"`
	Journal      *journal.Config `json:"journal,omitempty"`
}

// DefaultPath returns the standard settings location,
// $XDG_CONFIG_HOME/sift/settings.json or the platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sift", "settings.json"), nil
}

// DefaultSettings returns a ready-to-use configuration: the user's
// Downloads folder as source, move mode, and a derived layout under
// Downloads/Organized.
func DefaultSettings() *Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	source := filepath.Join(home, "Downloads")
	journalDefaults := journal.DefaultConfig()

	return &Settings{
		Source:       source,
		Mode:         string(transfer.Move),
		Destinations: DeriveLayout(filepath.Join(source, "Organized")),
		Watch:        watcher.DefaultConfig(),
		Journal:      &journalDefaults,
	}
}

// Validate checks that the settings name a source, a known mode, and a
// destination for every category. Path existence is checked separately
// when a run starts.
func (s *Settings) Validate() error {
	if s.Source == "" {
		return &Error{
			Type:    ValidationError,
			Message: "source must be set",
		}
	}

	if _, err := transfer.ParseMode(s.Mode); err != nil {
		return &Error{
			Type:    ValidationError,
			Message: fmt.Sprintf("mode must be %q or %q, got %q", transfer.Move, transfer.Copy, s.Mode),
		}
	}

	for _, slot := range s.Destinations.slots() {
		if slot.path == "" {
			return &Error{
				Type:    ValidationError,
				Message: fmt.Sprintf("destinations.%s must be set", slot.field),
			}
		}
	}

	return nil
}

// ApplyDefaults fills in anything the settings file is allowed to omit:
// the transfer mode and the journal section.
func (s *Settings) ApplyDefaults() {
	if s.Mode == "" {
		s.Mode = string(transfer.Move)
	}

	defaults := journal.DefaultConfig()
	if s.Journal == nil {
		s.Journal = &defaults
		return
	}

	if s.Journal.Directory == "" {
		s.Journal.Directory = defaults.Directory
	}
	if s.Journal.RotationSize == 0 {
		s.Journal.RotationSize = defaults.RotationSize
	}
	// RotationPeriod can be empty (no time-based rotation).
	// RetentionDays and RetentionRuns 0 mean unlimited, so stay as-is.
	if s.Journal.MinRetentionDays == 0 {
		s.Journal.MinRetentionDays = defaults.MinRetentionDays
	}
}

// TransferMode returns the parsed transfer mode. Call after Validate or
// ApplyDefaults.
func (s *Settings) TransferMode() (transfer.Mode, error) {
	return transfer.ParseMode(s.Mode)
}

// Load reads, parses, and validates the settings file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{
				Type: FileNotFound,
				Path: path,
			}
		}
		return nil, &Error{
			Type:    FileNotFound,
			Path:    path,
			Message: err.Error(),
		}
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, &Error{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &settings, nil
}

// LoadOrDefault loads the settings file if it exists, or returns
// DefaultSettings when it does not.
func LoadOrDefault(path string) (*Settings, error) {
	settings, err := Load(path)
	if err != nil {
		var cfgErr *Error
		if errors.As(err, &cfgErr) && cfgErr.Type == FileNotFound && cfgErr.Message == "" {
			return DefaultSettings(), nil
		}
		return nil, err
	}
	return settings, nil
}

// Save writes the settings as indented JSON, creating the parent
// directory if needed.
func Save(settings *Settings, path string) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return &Error{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &Error{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to create settings directory: %s", err.Error()),
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return &Error{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to write settings file: %s", err.Error()),
		}
	}

	return nil
}

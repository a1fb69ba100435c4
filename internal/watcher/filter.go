package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnorePatterns returns the entry-name patterns that mark
// in-progress downloads and editor droppings.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		"*.partial",    // Edge partial downloads
		".~*",          // office lock files
	}
}

// Filter decides which entry names should never be organized.
type Filter struct {
	patterns []string
}

// NewFilter builds a Filter from the given glob patterns, falling back
// to DefaultIgnorePatterns when none are provided.
func NewFilter(patterns []string) *Filter {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns()
	}
	return &Filter{patterns: patterns}
}

// ShouldIgnore reports whether the entry's base name matches any ignore
// pattern. Patterns use doublestar glob syntax; a bare ".ext" pattern
// with no metacharacters additionally matches as a case-insensitive
// suffix, so ".bak" covers "report.BAK".
func (f *Filter) ShouldIgnore(path string) bool {
	name := filepath.Base(path)

	for _, pattern := range f.patterns {
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return true
		}

		if strings.HasPrefix(pattern, ".") && !strings.ContainsAny(pattern, "*?[{") {
			if strings.HasSuffix(strings.ToLower(name), strings.ToLower(pattern)) {
				return true
			}
		}
	}
	return false
}

// Patterns returns a copy of the active ignore patterns.
func (f *Filter) Patterns() []string {
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}

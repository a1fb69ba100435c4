// Package scan computes per-category size and count statistics for Sift.
package scan

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"sift/internal/classifier"
)

// ErrorType represents the type of statistics scan error.
type ErrorType string

const (
	// SourceNotFound indicates the scanned source does not exist or is not
	// a directory.
	SourceNotFound ErrorType = "SOURCE_NOT_FOUND"
	// PermissionDenied indicates the source directory cannot be read.
	PermissionDenied ErrorType = "PERMISSION_DENIED"
)

// Error represents a failed statistics scan.
type Error struct {
	Type ErrorType
	Path string
	Err  error
}

func (e *Error) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CategoryStats aggregates the files of one category.
type CategoryStats struct {
	Count int
	Size  int64
}

// Report holds one full statistics pass over a source tree.
type Report struct {
	Source      string
	TotalCount  int
	TotalSize   int64
	PerCategory map[classifier.Category]CategoryStats
}

// Run walks the entire tree under source and aggregates regular files by
// category. Entries that cannot be statted are skipped; unreadable subtrees
// are skipped. A missing or non-directory source is reported as a distinct
// SOURCE_NOT_FOUND result, never as zeros.
func Run(source string) (*Report, error) {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Type: SourceNotFound, Path: source, Err: err}
		}
		if os.IsPermission(err) {
			return nil, &Error{Type: PermissionDenied, Path: source, Err: err}
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, &Error{Type: SourceNotFound, Path: source, Err: errors.New("path is not a directory")}
	}

	report := &Report{
		Source:      source,
		PerCategory: make(map[classifier.Category]CategoryStats, 6),
	}
	for _, cat := range classifier.Categories() {
		report.PerCategory[cat] = CategoryStats{}
	}

	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == source {
				if os.IsPermission(walkErr) {
					return &Error{Type: PermissionDenied, Path: source, Err: walkErr}
				}
				return walkErr
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		// Stat follows symlinks; dangling links and entries that vanish
		// mid-walk are skipped. Non-regular targets contribute nothing.
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			return nil
		}

		cat := classifier.Classify(d.Name())
		cs := report.PerCategory[cat]
		cs.Count++
		cs.Size += fi.Size()
		report.PerCategory[cat] = cs

		report.TotalCount++
		report.TotalSize += fi.Size()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

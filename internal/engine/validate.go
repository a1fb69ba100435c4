package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sift/internal/classifier"
)

// ValidationError reports every reason a run could not start: the
// source is missing or not a folder, a category has no destination, or
// a destination is missing, not a folder, or not writable.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "cannot start run: " + strings.Join(e.Issues, "; ")
}

const writeProbeName = ".sift_write_test"

// validateRun checks the full start precondition set and collects all
// violations rather than stopping at the first.
func validateRun(source string, dests DestinationMap) *ValidationError {
	var issues []string

	if info, err := os.Stat(source); err != nil {
		if os.IsNotExist(err) {
			issues = append(issues, fmt.Sprintf("source folder does not exist: %s", source))
		} else {
			issues = append(issues, fmt.Sprintf("source folder is not accessible: %s (%v)", source, err))
		}
	} else if !info.IsDir() {
		issues = append(issues, fmt.Sprintf("source is not a folder: %s", source))
	}

	for _, category := range classifier.Categories() {
		dir, ok := dests[category]
		if !ok || dir == "" {
			issues = append(issues, fmt.Sprintf("no destination set for %s", category.Label()))
			continue
		}

		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				issues = append(issues, fmt.Sprintf("destination folder does not exist: %s (%s)", dir, category.Label()))
			} else {
				issues = append(issues, fmt.Sprintf("destination folder is not accessible: %s (%v)", dir, err))
			}
			continue
		}
		if !info.IsDir() {
			issues = append(issues, fmt.Sprintf("destination is not a folder: %s (%s)", dir, category.Label()))
			continue
		}
		if !isWritableDir(dir) {
			issues = append(issues, fmt.Sprintf("destination folder is not writable: %s (%s)", dir, category.Label()))
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// isWritableDir probes writability by creating and removing a marker
// file; permission bits alone miss read-only mounts and ACLs.
func isWritableDir(dir string) bool {
	probe := filepath.Join(dir, writeProbeName)
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// Package resolver produces collision-free target paths for Sift transfers.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve returns the path under destDir where an entry called name can be
// placed without overwriting anything. When destDir/name is free it is
// returned unchanged; otherwise numbered candidates are tried in order,
// starting at 1, until a free one is found.
//
// Examples:
//   - "file.pdf" -> "file(1).pdf" (if file.pdf exists)
//   - "file.pdf" -> "file(2).pdf" (if file.pdf and file(1).pdf exist)
//   - "vacation" -> "vacation(1)" (directories take the suffix at the end)
//
// The existence check and the later transfer are not atomic: an entry
// created at the returned path by another writer in between would still
// collide. Acceptable under the single-writer run model.
func Resolve(destDir, name string, isDir bool) (string, error) {
	target := filepath.Join(destDir, name)
	free, err := pathFree(target)
	if err != nil {
		return "", err
	}
	if free {
		return target, nil
	}

	stem, ext := splitName(name, isDir)
	for n := 1; ; n++ {
		candidate := filepath.Join(destDir, fmt.Sprintf("%s(%d)%s", stem, n, ext))
		free, err := pathFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
}

// splitName separates the numbered-suffix insertion point. Directories keep
// their full name as the stem; files split before the final extension. A
// leading-dot name with no second dot (".bashrc") counts as extensionless.
func splitName(name string, isDir bool) (stem, ext string) {
	if isDir {
		return name, ""
	}
	ext = filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// pathFree reports whether nothing exists at path. Symlinks count as
// existing even when dangling.
func pathFree(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return false, nil
	}
	if os.IsNotExist(err) {
		return true, nil
	}
	return false, err
}

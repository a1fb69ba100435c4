// Package transfer moves and copies files and directory trees for Sift.
package transfer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Mode selects how an entry reaches its destination.
type Mode string

const (
	Move Mode = "move"
	Copy Mode = "copy"
)

// ParseMode converts a settings or flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Move:
		return Move, nil
	case Copy:
		return Copy, nil
	default:
		return "", fmt.Errorf("unknown transfer mode %q (want move or copy)", s)
	}
}

// ErrorType represents the type of transfer error.
type ErrorType string

const (
	// SourceVanished indicates the source entry disappeared before transfer.
	SourceVanished ErrorType = "SOURCE_VANISHED"
	// TargetExists indicates an entry already occupies the resolved target.
	TargetExists ErrorType = "TARGET_EXISTS"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied ErrorType = "PERMISSION_DENIED"
	// PartialCopy indicates a directory copy failed partway; the partial
	// target tree has been removed.
	PartialCopy ErrorType = "PARTIAL_COPY"
	// IOFailure covers the remaining filesystem errors (disk full,
	// cross-device removal, unsupported entry kinds).
	IOFailure ErrorType = "IO_FAILURE"
)

// Error represents a failed transfer of one entry.
type Error struct {
	Type   ErrorType
	Source string
	Target string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s -> %s (%v)", e.Type, e.Source, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %s -> %s", e.Type, e.Source, e.Target)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// copyBufferSize is the chunk size for streaming file copies.
const copyBufferSize = 64 * 1024

// Transfer relocates (Move) or duplicates (Copy) the entry at src to dst.
// dst must not exist: an occupied target is a failure, never an overwrite.
// Directories move as a unit and copy whole-or-nothing: a failed member
// copy removes the partial target tree and leaves src untouched. The one
// deliberate exception is a cross-device directory move whose subtree
// copied fully but whose source could not be removed; both trees are kept
// and the error reports it, so nothing is ever deleted blind.
func Transfer(src, dst string, mode Mode, isDir bool) error {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &Error{Type: SourceVanished, Source: src, Target: dst, Err: err}
		}
		return wrapIO(src, dst, err)
	}
	if srcInfo.IsDir() != isDir {
		return &Error{Type: SourceVanished, Source: src, Target: dst,
			Err: fmt.Errorf("entry kind changed since enumeration")}
	}
	if _, err := os.Lstat(dst); err == nil {
		return &Error{Type: TargetExists, Source: src, Target: dst}
	} else if !os.IsNotExist(err) {
		return wrapIO(src, dst, err)
	}

	switch mode {
	case Move:
		return move(src, dst, isDir, srcInfo)
	case Copy:
		if isDir {
			return copyTree(src, dst)
		}
		return copyFile(src, dst, srcInfo)
	default:
		return &Error{Type: IOFailure, Source: src, Target: dst,
			Err: fmt.Errorf("unknown transfer mode %q", mode)}
	}
}

// move renames src to dst, falling back to copy-then-delete when rename is
// not possible (typically a cross-device target).
func move(src, dst string, isDir bool, srcInfo os.FileInfo) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if os.IsPermission(err) {
		return &Error{Type: PermissionDenied, Source: src, Target: dst, Err: err}
	}

	if isDir {
		if err := copyTree(src, dst); err != nil {
			return err
		}
		if err := os.RemoveAll(src); err != nil {
			// The copy is complete; keep both trees rather than guess at
			// what a partial removal left behind.
			return wrapIO(src, dst, fmt.Errorf("subtree copied but source removal failed: %w", err))
		}
		return nil
	}

	if err := copyFile(src, dst, srcInfo); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		os.Remove(dst)
		return wrapIO(src, dst, err)
	}
	return nil
}

// copyFile streams one regular file to dst, preserving mode bits and, on a
// best-effort basis, the modification time.
func copyFile(src, dst string, srcInfo os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &Error{Type: SourceVanished, Source: src, Target: dst, Err: err}
		}
		return wrapIO(src, dst, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		if os.IsExist(err) {
			return &Error{Type: TargetExists, Source: src, Target: dst, Err: err}
		}
		return wrapIO(src, dst, err)
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		os.Remove(dst)
		return wrapIO(src, dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return wrapIO(src, dst, err)
	}

	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	return nil
}

// copyTree duplicates the directory tree rooted at src into dst. Symlinks
// are recreated as links; other non-regular entries fail the copy. Any
// failure removes whatever partial tree was built.
func copyTree(src, dst string) error {
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, target, info)
		default:
			return fmt.Errorf("unsupported entry kind %s at %s", d.Type(), path)
		}
	})
	if err != nil {
		os.RemoveAll(dst)
		return &Error{Type: PartialCopy, Source: src, Target: dst, Err: err}
	}
	return nil
}

func wrapIO(src, dst string, err error) *Error {
	if os.IsPermission(err) {
		return &Error{Type: PermissionDenied, Source: src, Target: dst, Err: err}
	}
	return &Error{Type: IOFailure, Source: src, Target: dst, Err: err}
}

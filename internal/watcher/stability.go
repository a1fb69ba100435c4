package watcher

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrFileVanished is returned when the file disappears while waiting
// for it to stabilize.
var ErrFileVanished = errors.New("file vanished before stabilizing")

// ErrFileUnstable is returned when the file keeps changing for the
// whole timeout, as with a download that never finishes.
var ErrFileUnstable = errors.New("file did not stabilize within timeout")

// StabilityChecker waits for a file to stop changing before it is
// organized. A file counts as stable once its size and mtime have held
// for the threshold duration.
type StabilityChecker struct {
	threshold time.Duration
	timeout   time.Duration
	interval  time.Duration
}

// NewStabilityChecker returns a checker with the given stability
// threshold, a 30 second timeout, and a poll interval of threshold/4
// clamped to a 50ms floor.
func NewStabilityChecker(threshold time.Duration) *StabilityChecker {
	interval := threshold / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return &StabilityChecker{
		threshold: threshold,
		timeout:   30 * time.Second,
		interval:  interval,
	}
}

// NewStabilityCheckerWithOptions returns a checker with explicit
// threshold, timeout, and poll interval.
func NewStabilityCheckerWithOptions(threshold, timeout, interval time.Duration) *StabilityChecker {
	return &StabilityChecker{
		threshold: threshold,
		timeout:   timeout,
		interval:  interval,
	}
}

// WaitForStable blocks until the file at path has kept the same size
// and mtime for the threshold duration. It returns ErrFileVanished if
// the file disappears, ErrFileUnstable if the timeout elapses first,
// or the context error if ctx is cancelled.
func (s *StabilityChecker) WaitForStable(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lastSize, lastMod, err := statSignature(path)
	if err != nil {
		return err
	}
	lastChange := time.Now()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrFileUnstable
			}
			return ctx.Err()
		case <-ticker.C:
			size, mod, err := statSignature(path)
			if err != nil {
				return err
			}
			if size != lastSize || !mod.Equal(lastMod) {
				lastSize, lastMod = size, mod
				lastChange = time.Now()
			} else if time.Since(lastChange) >= s.threshold {
				return nil
			}
		}
	}
}

// statSignature returns the size and mtime used to decide whether a
// file is still being written.
func statSignature(path string) (int64, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, time.Time{}, ErrFileVanished
		}
		return 0, time.Time{}, err
	}
	return info.Size(), info.ModTime(), nil
}

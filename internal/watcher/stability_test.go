package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestStabilityCheckerIntervalFloor(t *testing.T) {
	tests := []struct {
		threshold time.Duration
		interval  time.Duration
	}{
		{1 * time.Second, 250 * time.Millisecond},
		{400 * time.Millisecond, 100 * time.Millisecond},
		// Below the floor the interval clamps to 50ms.
		{100 * time.Millisecond, 50 * time.Millisecond},
		{0, 50 * time.Millisecond},
	}

	for _, tt := range tests {
		s := NewStabilityChecker(tt.threshold)
		if s.interval != tt.interval {
			t.Errorf("threshold %v: interval = %v, want %v", tt.threshold, s.interval, tt.interval)
		}
		if s.timeout != 30*time.Second {
			t.Errorf("threshold %v: timeout = %v, want 30s", tt.threshold, s.timeout)
		}
	}
}

func TestWaitForStableSettledFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := writeTestFile(t, dir, "report.pdf", 2048)

	s := NewStabilityCheckerWithOptions(60*time.Millisecond, 2*time.Second, 20*time.Millisecond)
	start := time.Now()
	if err := s.WaitForStable(context.Background(), path); err != nil {
		t.Fatalf("WaitForStable on settled file: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("settled file took %v to report stable", elapsed)
	}
}

func TestWaitForStableGrowingFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "movie.mkv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}

	// Simulate a download: append for a while, then finish.
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer f.Close()
		for i := 0; i < 6; i++ {
			if _, err := f.Write(make([]byte, 512)); err != nil {
				return
			}
			time.Sleep(25 * time.Millisecond)
		}
	}()

	s := NewStabilityCheckerWithOptions(80*time.Millisecond, 3*time.Second, 20*time.Millisecond)
	if err := s.WaitForStable(context.Background(), path); err != nil {
		t.Fatalf("WaitForStable on finishing download: %v", err)
	}
	<-done

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat after stable: %v", err)
	}
	if info.Size() != 6*512 {
		t.Errorf("reported stable at size %d, want %d (after last write)", info.Size(), 6*512)
	}
}

func TestWaitForStableVanishedFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := writeTestFile(t, dir, "fleeting.tmp", 128)

	go func() {
		time.Sleep(40 * time.Millisecond)
		os.Remove(path)
	}()

	s := NewStabilityCheckerWithOptions(300*time.Millisecond, 2*time.Second, 20*time.Millisecond)
	err = s.WaitForStable(context.Background(), path)
	if !errors.Is(err, ErrFileVanished) {
		t.Errorf("WaitForStable = %v, want ErrFileVanished", err)
	}
}

func TestWaitForStableMissingFile(t *testing.T) {
	s := NewStabilityChecker(100 * time.Millisecond)
	err := s.WaitForStable(context.Background(), "/nonexistent/never-there.bin")
	if !errors.Is(err, ErrFileVanished) {
		t.Errorf("WaitForStable = %v, want ErrFileVanished", err)
	}
}

func TestWaitForStableTimesOut(t *testing.T) {
	dir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "endless.part")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}
	defer f.Close()

	// Keep the file changing for longer than the timeout.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(15 * time.Millisecond):
				f.Write([]byte("x"))
			}
		}
	}()

	s := NewStabilityCheckerWithOptions(200*time.Millisecond, 250*time.Millisecond, 20*time.Millisecond)
	err = s.WaitForStable(context.Background(), path)
	if !errors.Is(err, ErrFileUnstable) {
		t.Errorf("WaitForStable = %v, want ErrFileUnstable", err)
	}
}

func TestWaitForStableCancelled(t *testing.T) {
	dir, err := os.MkdirTemp("", "sift-test-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := writeTestFile(t, dir, "slow.iso", 64)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	s := NewStabilityCheckerWithOptions(5*time.Second, 30*time.Second, 20*time.Millisecond)
	err = s.WaitForStable(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForStable = %v, want context.Canceled", err)
	}
}

package watcher

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerFiresOnceAfterDelay(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var lastPath string

	d := NewDebouncer(50*time.Millisecond, func(path string) {
		mu.Lock()
		lastPath = path
		mu.Unlock()
		calls.Add(1)
	})

	d.Add("/downloads/report.pdf")
	if d.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d after Add, want 1", d.PendingCount())
	}

	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
	mu.Lock()
	if lastPath != "/downloads/report.pdf" {
		t.Errorf("callback path = %q, want /downloads/report.pdf", lastPath)
	}
	mu.Unlock()
	if d.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after fire, want 0", d.PendingCount())
	}
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	var calls atomic.Int32

	d := NewDebouncer(80*time.Millisecond, func(path string) {
		calls.Add(1)
	})

	// Repeated events for the same path inside the delay window reset
	// the timer, so only one callback fires.
	for i := 0; i < 5; i++ {
		d.Add("/downloads/movie.mkv")
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(250 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times for one path, want 1", got)
	}
}

func TestDebouncerTracksPathsIndependently(t *testing.T) {
	var mu sync.Mutex
	var paths []string

	d := NewDebouncer(40*time.Millisecond, func(path string) {
		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()
	})

	d.Add("/downloads/a.pdf")
	d.Add("/downloads/b.zip")
	if d.PendingCount() != 2 {
		t.Fatalf("PendingCount = %d, want 2", d.PendingCount())
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	sort.Strings(paths)
	if len(paths) != 2 || paths[0] != "/downloads/a.pdf" || paths[1] != "/downloads/b.zip" {
		t.Errorf("callbacks = %v, want both paths exactly once", paths)
	}
}

func TestDebouncerCancelAll(t *testing.T) {
	var calls atomic.Int32

	d := NewDebouncer(60*time.Millisecond, func(path string) {
		calls.Add(1)
	})

	d.Add("/downloads/a.pdf")
	d.Add("/downloads/b.zip")
	d.CancelAll()

	if d.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after CancelAll, want 0", d.PendingCount())
	}

	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("callback fired %d times after CancelAll, want 0", got)
	}
}

func TestDebouncerZeroDelayFiresImmediately(t *testing.T) {
	var calls atomic.Int32

	d := NewDebouncer(0, func(path string) {
		calls.Add(1)
	})

	d.Add("/downloads/a.pdf")
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times with zero delay, want 1", got)
	}
}

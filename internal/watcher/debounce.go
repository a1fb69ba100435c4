package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of events for the same path into a single
// callback, fired once the path has been quiet for the full delay.
type Debouncer struct {
	delay    time.Duration
	callback func(path string)

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewDebouncer returns a Debouncer that invokes callback for a path
// after delay has elapsed with no further Add calls for that path.
// The callback runs on a timer goroutine.
func NewDebouncer(delay time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
		pending:  make(map[string]*time.Timer),
	}
}

// Add schedules the callback for path, resetting the timer if one is
// already pending so that rapid repeat events collapse into one call.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.pending[path]; ok {
		timer.Stop()
	}

	d.pending[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.pending, path)
		d.mu.Unlock()

		// The callback runs outside the lock so it may call back into
		// the Debouncer.
		if d.callback != nil {
			d.callback(path)
		}
	})
}

// CancelAll stops every pending timer. Callbacks that have not yet
// fired will not fire; callbacks already running are unaffected.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, timer := range d.pending {
		timer.Stop()
		delete(d.pending, path)
	}
}

// PendingCount reports how many paths are waiting on a timer.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Package watcher monitors a source folder for new entries and reports
// each one once it is safe to organize. Raw file system events are
// debounced per path, temporary download artifacts are filtered out by
// glob pattern, and regular files must hold still (size and mtime
// unchanged) before the handler is invoked.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config controls watch-mode behavior. A zero value for DebounceSeconds
// or StabilityThresholdMs disables the corresponding delay; DefaultConfig
// supplies the recommended settings.
type Config struct {
	// DebounceSeconds is how long a path must stay quiet after its last
	// create event before it is considered settled.
	DebounceSeconds int `json:"debounceSeconds"`
	// StabilityThresholdMs is how long a file's size and mtime must
	// remain unchanged before it is handed to the handler.
	StabilityThresholdMs int `json:"stabilityThresholdMs"`
	// IgnorePatterns are glob patterns matched against entry names.
	// Matching entries never reach the handler.
	IgnorePatterns []string `json:"ignorePatterns"`
}

// DefaultConfig returns the recommended watch settings: a two second
// debounce, a one second stability window, and the standard set of
// temporary-file patterns.
func DefaultConfig() *Config {
	return &Config{
		DebounceSeconds:      2,
		StabilityThresholdMs: 1000,
		IgnorePatterns:       DefaultIgnorePatterns(),
	}
}

// EntryHandler is invoked with the absolute path of each new entry once
// it has settled and passed the stability check. Handlers run on timer
// goroutines and must be safe for concurrent use.
type EntryHandler func(path string)

// Summary reports what a watch session saw between Start and Stop.
type Summary struct {
	Ready   int           // entries handed to the handler
	Ignored int           // entries filtered, vanished, or never stabilized
	Errors  int           // errors reported by the underlying watcher
	Elapsed time.Duration // time between Start and Stop
}

// Watcher observes a single source folder for new direct entries.
type Watcher struct {
	config    *Config
	handler   EntryHandler
	filter    *Filter
	debouncer *Debouncer
	stability *StabilityChecker
	fsWatcher *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	ready     int
	ignored   int
	errors    int
	startTime time.Time
}

// New creates a Watcher with the given configuration and handler.
// A nil config selects DefaultConfig.
func New(config *Config, handler EntryHandler) *Watcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &Watcher{
		config:  config,
		handler: handler,
		filter:  NewFilter(config.IgnorePatterns),
	}
}

// Start begins watching the direct entries of source. It returns an
// error if the folder cannot be watched; otherwise event processing
// continues in the background until Stop is called.
func (w *Watcher) Start(source string) error {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(absSource); err != nil {
		fsw.Close()
		return err
	}

	w.fsWatcher = fsw
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.startTime = time.Now()

	delay := time.Duration(w.config.DebounceSeconds) * time.Second
	threshold := time.Duration(w.config.StabilityThresholdMs) * time.Millisecond
	w.debouncer = NewDebouncer(delay, w.onSettled)
	w.stability = NewStabilityChecker(threshold)

	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop shuts the watcher down: pending debounce timers are cancelled,
// in-flight stability waits are aborted, and the event loop is drained.
// It returns a summary of the session.
func (w *Watcher) Stop() *Summary {
	if w.cancel != nil {
		w.cancel()
	}
	if w.debouncer != nil {
		w.debouncer.CancelAll()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	return &Summary{
		Ready:   w.ready,
		Ignored: w.ignored,
		Errors:  w.errors,
		Elapsed: time.Since(w.startTime),
	}
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			// Renames into the folder arrive as creates, which covers
			// browsers that download under a temp name and rename when done.
			if event.Op.Has(fsnotify.Create) {
				w.handleCreate(event.Name)
			}
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.errors++
			w.mu.Unlock()
		}
	}
}

func (w *Watcher) handleCreate(path string) {
	if w.filter.ShouldIgnore(path) {
		w.countIgnored()
		return
	}
	w.debouncer.Add(path)
}

// onSettled runs after the debounce delay for a path that received no
// further create events. Files must additionally pass the stability
// check; directories are reported as soon as they settle.
func (w *Watcher) onSettled(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Gone between the event and the settle; most likely a temp
		// file that was renamed away.
		w.countIgnored()
		return
	}

	if !info.IsDir() {
		if err := w.stability.WaitForStable(w.ctx, path); err != nil {
			if w.ctx.Err() == nil {
				w.countIgnored()
			}
			return
		}
	}

	if w.ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	w.ready++
	w.mu.Unlock()

	if w.handler != nil {
		w.handler(path)
	}
}

func (w *Watcher) countIgnored() {
	w.mu.Lock()
	w.ignored++
	w.mu.Unlock()
}

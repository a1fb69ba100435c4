// Package engine coordinates organizing runs. A single background
// worker classifies, resolves, and transfers the direct entries of a
// source folder while the control surface polls progress, renders the
// log, and may request a cooperative stop at item boundaries.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"sift/internal/classifier"
	"sift/internal/journal"
	"sift/internal/resolver"
	"sift/internal/scan"
	"sift/internal/transfer"
)

// ErrRunActive is returned by Start while a run is in progress.
var ErrRunActive = errors.New("a run is already active")

// DestinationMap assigns a destination folder to each category. All six
// categories must be mapped before a run starts.
type DestinationMap map[classifier.Category]string

// Phase is the engine's lifecycle state.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseRunning   Phase = "RUNNING"
	PhaseCompleted Phase = "COMPLETED"
	PhaseCancelled Phase = "CANCELLED"
	PhaseFailed    Phase = "FAILED"
)

// Progress is a point-in-time view of the current run.
type Progress struct {
	Processed int
	Total     int
}

// TransferOutcome records what happened to one entry. A failed item
// never aborts the run; the outcome carries its error instead.
type TransferOutcome struct {
	Name     string
	Category classifier.Category
	IsDir    bool
	Target   string // resolved target path; set even in dry-run
	Err      error  // nil on success
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID     string
	Source    string
	Mode      transfer.Mode
	DryRun    bool
	Phase     Phase
	Total     int
	Processed int
	Moved     int
	Copied    int
	Planned   int   // dry-run resolutions
	Failed    int
	Failure   error // enumeration error; set only when Phase is Failed
	Outcomes  []TransferOutcome
	Duration  time.Duration
}

func (s *RunSummary) record(outcome TransferOutcome, dryRun bool) {
	switch {
	case outcome.Err != nil:
		s.Failed++
	case dryRun:
		s.Planned++
	case s.Mode == transfer.Move:
		s.Moved++
	default:
		s.Copied++
	}
}

// Options wires the engine's collaborators. Every field may be left
// zero: a nil Log discards lines, a nil Stats skips the post-run
// refresh, a nil Journal skips journaling.
type Options struct {
	Log     LogSink
	Stats   StatsSink
	Journal *journal.Writer
	DryRun  bool
}

// sourceEntry is one direct child of the source folder, captured at
// enumeration time. Entries added to the source later are not seen by
// the running pass.
type sourceEntry struct {
	name  string
	isDir bool
}

// Engine runs one organizing pass at a time.
type Engine struct {
	opts Options

	processed atomic.Int64
	total     atomic.Int64

	mu         sync.Mutex
	phase      Phase
	cancelChan chan struct{}
	cancelOnce *sync.Once
	done       chan struct{}
	summary    *RunSummary
}

// New creates an idle Engine.
func New(opts Options) *Engine {
	if opts.Log == nil {
		opts.Log = nopSink{}
	}
	return &Engine{
		opts:  opts,
		phase: PhaseIdle,
	}
}

// Start validates the run inputs and, if they pass, launches the worker
// and returns nil. A *ValidationError rejection leaves the engine Idle
// with no log output; ErrRunActive means a run is already in progress.
// Source, mode, and destinations are fixed for the whole run.
func (e *Engine) Start(source string, mode transfer.Mode, dests DestinationMap) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseRunning {
		return ErrRunActive
	}

	if verr := validateRun(source, dests); verr != nil {
		return verr
	}

	fixed := make(DestinationMap, len(dests))
	for category, dir := range dests {
		fixed[category] = dir
	}

	e.phase = PhaseRunning
	e.processed.Store(0)
	e.total.Store(0)
	e.cancelChan = make(chan struct{})
	e.cancelOnce = new(sync.Once)
	e.done = make(chan struct{})

	go e.run(source, mode, fixed, e.cancelChan, e.done)

	return nil
}

// RequestCancel asks the current run to stop at the next item boundary.
// It never interrupts an in-flight transfer and is safe to call in any
// phase; the first effective request logs the acknowledgement line.
func (e *Engine) RequestCancel() {
	e.mu.Lock()
	if e.phase != PhaseRunning {
		e.mu.Unlock()
		return
	}
	once := e.cancelOnce
	cancel := e.cancelChan
	e.mu.Unlock()

	once.Do(func() {
		close(cancel)
		e.opts.Log.Append("Stopping... (will stop after current file)")
	})
}

// ProgressSnapshot returns the current processed/total counters. It is
// non-blocking and safe to poll frequently.
func (e *Engine) ProgressSnapshot() Progress {
	return Progress{
		Processed: int(e.processed.Load()),
		Total:     int(e.total.Load()),
	}
}

// Phase returns the engine's current lifecycle state.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Summary returns the last terminal run's summary, or nil if no run has
// finished yet.
func (e *Engine) Summary() *RunSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

// Wait blocks until the current run reaches a terminal phase. It
// returns immediately if no run was ever started.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

// run is the worker goroutine: one pass over the enumeration snapshot.
func (e *Engine) run(source string, mode transfer.Mode, dests DestinationMap, cancel <-chan struct{}, done chan struct{}) {
	start := time.Now()
	summary := &RunSummary{
		RunID:  e.beginJournalRun(source, mode),
		Source: source,
		Mode:   mode,
		DryRun: e.opts.DryRun,
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		e.opts.Log.Append(fmt.Sprintf("Error listing source folder: %v", err))
		summary.Failure = err
		e.finish(source, summary, PhaseFailed, start, done)
		return
	}

	snapshot := make([]sourceEntry, 0, len(entries))
	for _, entry := range entries {
		snapshot = append(snapshot, sourceEntry{name: entry.Name(), isDir: entry.IsDir()})
	}
	summary.Total = len(snapshot)
	e.total.Store(int64(len(snapshot)))

	if len(snapshot) == 0 {
		e.opts.Log.Append("No items in source folder.")
		e.finish(source, summary, PhaseCompleted, start, done)
		return
	}

	phase := PhaseCompleted
	for _, entry := range snapshot {
		if cancelRequested(cancel) {
			phase = PhaseCancelled
			break
		}

		outcome := e.processItem(source, entry, mode, dests)
		summary.Outcomes = append(summary.Outcomes, outcome)
		summary.record(outcome, e.opts.DryRun)
		summary.Processed++
		e.processed.Add(1)
		e.opts.Log.Append(itemLine(outcome, mode, e.opts.DryRun))
		e.journalItem(source, outcome, mode)
	}

	if phase == PhaseCancelled {
		e.opts.Log.Append("Operation stopped before completion.")
	} else {
		e.opts.Log.Append(fmt.Sprintf("Operation completed: %d items processed.", summary.Processed))
	}
	e.finish(source, summary, phase, start, done)
}

func cancelRequested(cancel <-chan struct{}) bool {
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}

// processItem classifies, resolves, and transfers one entry. Directories
// bypass classification and always land in the Other destination.
func (e *Engine) processItem(source string, entry sourceEntry, mode transfer.Mode, dests DestinationMap) TransferOutcome {
	outcome := TransferOutcome{
		Name:     entry.name,
		IsDir:    entry.isDir,
		Category: classifier.Other,
	}
	if !entry.isDir {
		outcome.Category = classifier.Classify(entry.name)
	}

	target, err := resolver.Resolve(dests[outcome.Category], entry.name, entry.isDir)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Target = target

	if e.opts.DryRun {
		return outcome
	}

	srcPath := filepath.Join(source, entry.name)
	if err := transfer.Transfer(srcPath, target, mode, entry.isDir); err != nil {
		outcome.Err = err
	}
	return outcome
}

// itemLine renders the single log line an item produces.
func itemLine(outcome TransferOutcome, mode transfer.Mode, dryRun bool) string {
	if outcome.Err != nil {
		return fmt.Sprintf("Error processing %s: %v", outcome.Name, outcome.Err)
	}

	var prefix string
	switch {
	case dryRun && mode == transfer.Move:
		prefix = "Would move"
	case dryRun:
		prefix = "Would copy"
	case mode == transfer.Move:
		prefix = "Moved"
	default:
		prefix = "Copied"
	}
	if outcome.IsDir {
		prefix += " folder"
	}
	return fmt.Sprintf("%s: %s -> %s", prefix, outcome.Name, outcome.Target)
}

// finish publishes the post-run stats refresh, closes out the journal
// run, and moves the engine to its terminal phase. The run counts as
// over only once all three have happened.
func (e *Engine) finish(source string, summary *RunSummary, phase Phase, start time.Time, done chan struct{}) {
	summary.Phase = phase

	e.endJournalRun(summary, phase)
	e.refreshStats(source)

	summary.Duration = time.Since(start)

	e.mu.Lock()
	e.phase = phase
	e.summary = summary
	e.mu.Unlock()
	close(done)
}

func (e *Engine) refreshStats(source string) {
	if e.opts.Stats == nil {
		return
	}
	report, err := scan.Run(source)
	if err != nil {
		return
	}
	e.opts.Stats.Publish(report)
}

// Journal writes are best-effort: a journaling failure must not abort
// or fail the organizing run.

func (e *Engine) beginJournalRun(source string, mode transfer.Mode) string {
	if e.opts.Journal == nil {
		runID, err := journal.NewRunID()
		if err != nil {
			return ""
		}
		return string(runID)
	}

	runID, err := e.opts.Journal.StartRun(source, string(mode), e.opts.DryRun)
	if err != nil {
		return ""
	}
	return string(runID)
}

func (e *Engine) journalItem(source string, outcome TransferOutcome, mode transfer.Mode) {
	w := e.opts.Journal
	if w == nil {
		return
	}

	srcPath := filepath.Join(source, outcome.Name)
	category := string(outcome.Category)
	switch {
	case outcome.Err != nil:
		_ = w.RecordFailed(srcPath, category, journalErrType(outcome.Err), outcome.Err.Error())
	case e.opts.DryRun:
		_ = w.RecordPlanned(srcPath, outcome.Target, category, string(mode))
	case mode == transfer.Move:
		_ = w.RecordMoved(srcPath, outcome.Target, category)
	default:
		_ = w.RecordCopied(srcPath, outcome.Target, category)
	}
}

func (e *Engine) endJournalRun(summary *RunSummary, phase Phase) {
	w := e.opts.Journal
	if w == nil || summary.RunID == "" {
		return
	}

	var status journal.RunStatus
	switch phase {
	case PhaseCancelled:
		status = journal.RunStatusCancelled
	case PhaseFailed:
		status = journal.RunStatusFailed
	default:
		status = journal.RunStatusCompleted
	}

	_ = w.EndRun(journal.RunID(summary.RunID), status, journal.RunSummary{
		Total:     summary.Total,
		Processed: summary.Processed,
		Moved:     summary.Moved,
		Copied:    summary.Copied,
		Failed:    summary.Failed,
	})
}

// journalErrType maps an item error onto the journal's failure taxonomy.
func journalErrType(err error) string {
	var terr *transfer.Error
	if errors.As(err, &terr) {
		return string(terr.Type)
	}
	return string(transfer.IOFailure)
}

package engine

import (
	"sync"

	"sift/internal/scan"
)

// LogSink receives the run log, one line per completed item plus the
// terminal events, in processing order.
type LogSink interface {
	Append(line string)
}

// StatsSink receives the post-run source rescan.
type StatsSink interface {
	Publish(report *scan.Report)
}

type nopSink struct{}

func (nopSink) Append(string) {}

// MemorySink keeps appended lines in order. Safe for concurrent use.
type MemorySink struct {
	mu    sync.Mutex
	lines []string
}

func (s *MemorySink) Append(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

// Lines returns a copy of everything appended so far.
func (s *MemorySink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// MultiSink fans each line out to every sink, in order.
type MultiSink []LogSink

func (m MultiSink) Append(line string) {
	for _, sink := range m {
		sink.Append(line)
	}
}

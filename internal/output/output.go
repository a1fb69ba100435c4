// Package output renders CLI output for organizing runs: a TTY-only
// progress line rewritten in place, verbose echo of the run log, and
// colorized result and error helpers.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Echo every run log line
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output renders run output. The progress line only appears on a TTY
// in non-verbose mode; everything else is written unconditionally.
type Output struct {
	config          Config
	progressMu      sync.Mutex
	progressActive  bool
	progressTotal   int
	progressCurrent int
}

// New creates an Output with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{config: config}
}

// DefaultConfig returns a Config bound to the standard streams, with
// IsTTY detected from stdout.
func DefaultConfig() Config {
	return Config{
		Verbose:   false,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Append echoes one run log line when verbose mode is on. It satisfies
// the engine's log sink, so an Output can be wired directly as a run's
// log destination.
func (o *Output) Append(line string) {
	o.Verbose("%s", line)
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.clearProgressLine()
	fmt.Fprint(o.config.Writer, terminated(fmt.Sprintf(format, args...)))
}

// Info prints a message regardless of verbose mode.
func (o *Output) Info(format string, args ...interface{}) {
	o.clearProgressLine()
	fmt.Fprint(o.config.Writer, terminated(fmt.Sprintf(format, args...)))
}

// Header prints a bold section header.
func (o *Output) Header(format string, args ...interface{}) {
	o.clearProgressLine()
	fmt.Fprint(o.config.Writer, terminated(o.paint(fmt.Sprintf(format, args...), color.Bold)))
}

// Success prints a green result line.
func (o *Output) Success(format string, args ...interface{}) {
	o.clearProgressLine()
	fmt.Fprint(o.config.Writer, terminated(o.paint(fmt.Sprintf(format, args...), color.FgGreen)))
}

// Warn prints a yellow warning line.
func (o *Output) Warn(format string, args ...interface{}) {
	o.clearProgressLine()
	fmt.Fprint(o.config.Writer, terminated(o.paint(fmt.Sprintf(format, args...), color.FgYellow)))
}

// Error prints a red error message to the error writer.
func (o *Output) Error(format string, args ...interface{}) {
	o.clearProgressLine()
	fmt.Fprint(o.config.ErrWriter, terminated(o.paint(fmt.Sprintf(format, args...), color.FgRed)))
}

// paint applies color attributes on a TTY and leaves the text alone
// otherwise, so piped output stays clean.
func (o *Output) paint(msg string, attrs ...color.Attribute) string {
	if !o.config.IsTTY {
		return msg
	}
	return color.New(attrs...).Sprint(msg)
}

func terminated(msg string) string {
	if strings.HasSuffix(msg, "\n") {
		return msg
	}
	return msg + "\n"
}

// clearProgressLine blanks an active progress line so following output
// starts on a clean line.
func (o *Output) clearProgressLine() {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if o.progressActive && o.config.IsTTY {
		fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", 60)+"\r")
	}
}

// StartProgress begins a progress session over total items. Progress is
// suppressed off-TTY and in verbose mode, where the log lines themselves
// show the run advancing.
func (o *Output) StartProgress(total int) {
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.progressActive = true
	o.progressTotal = total
	o.progressCurrent = 0
}

// UpdateProgress rewrites the progress line in place. An empty message
// uses the default "Processing item N/M..." form.
func (o *Output) UpdateProgress(current int, message string) {
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressCurrent = current
	if message == "" {
		message = "Processing item"
	}
	fmt.Fprintf(o.config.Writer, "\r%s %d/%d...", message, current, o.progressTotal)
}

// EndProgress clears the progress line and closes the session.
func (o *Output) EndProgress() {
	if !o.config.IsTTY || o.config.Verbose {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressActive = false
	fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", 60)+"\r")
}

// IsVerbose reports whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY reports whether output goes to a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sift/internal/config"
	"sift/internal/engine"
	"sift/internal/journal"
	"sift/internal/output"
	"sift/internal/transfer"
)

var (
	flagConfig  string
	flagVerbose bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sift",
		Short: "Sort a folder's contents into category destinations",
		Long: `Sift classifies the direct entries of a source folder by file
extension and moves or copies each one into a destination folder for
its category: images and videos, audio, installers, documents,
archives, and everything else. Folders always count as "everything
else". Name collisions get a numeric suffix; nothing is overwritten.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "settings file (default: the user config directory)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "echo every run log line")

	cmd.AddCommand(
		newOrganizeCmd(),
		newScanCmd(),
		newWatchCmd(),
		newInitCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return cmd
}

// settingsPath resolves the settings file location: the --config flag
// wins, otherwise the per-user default.
func settingsPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// loadSettings loads the effective settings. A missing file at the
// default location falls back to built-in defaults; a missing file
// named via --config is an error.
func loadSettings() (*config.Settings, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	path, err := config.DefaultPath()
	if err != nil {
		return config.DefaultSettings(), nil
	}
	return config.LoadOrDefault(path)
}

func newConsole() *output.Output {
	cfg := output.DefaultConfig()
	cfg.Verbose = flagVerbose
	return output.New(cfg)
}

// warnOverlaps surfaces settings warnings (source/destination nesting)
// before a run. Warnings never block.
func warnOverlaps(console *output.Output, settings *config.Settings) {
	result := config.ValidateSettings(settings)
	for _, issue := range result.Warnings {
		console.Warn("Warning: %s: %s", issue.Field, issue.Message)
	}
}

// openJournal opens the run journal. Journaling is best-effort: on
// failure the run proceeds unjournaled with a warning.
func openJournal(console *output.Output, settings *config.Settings) *journal.Writer {
	writer, err := journal.New(*settings.Journal)
	if err != nil {
		console.Warn("Journal disabled: %v", err)
		return nil
	}
	return writer
}

// waitWithProgress blocks until the engine's current run finishes,
// driving the progress line from the engine's counters.
func waitWithProgress(console *output.Output, eng *engine.Engine) {
	done := make(chan struct{})
	go func() {
		eng.Wait()
		close(done)
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	started := false
	for {
		select {
		case <-done:
			console.EndProgress()
			return
		case <-ticker.C:
			progress := eng.ProgressSnapshot()
			if !started && progress.Total > 0 {
				console.StartProgress(progress.Total)
				started = true
			}
			if started {
				console.UpdateProgress(progress.Processed, "")
			}
		}
	}
}

// printRunSummary renders the terminal state of a finished run. Failed
// items are listed individually unless verbose mode already echoed
// them.
func printRunSummary(console *output.Output, summary *engine.RunSummary) {
	if summary == nil {
		return
	}

	if !console.IsVerbose() {
		for _, outcome := range summary.Outcomes {
			if outcome.Err != nil {
				console.Error("Error processing %s: %v", outcome.Name, outcome.Err)
			}
		}
	}

	duration := summary.Duration.Round(time.Millisecond)
	switch {
	case summary.Phase == engine.PhaseFailed:
		// The cause travels back through the command's error return.
	case summary.Phase == engine.PhaseCancelled:
		console.Warn("Stopped after %d of %d items (%s).", summary.Processed, summary.Total, duration)
	case summary.Total == 0:
		console.Info("Source folder is empty.")
	case summary.DryRun:
		console.Success("Dry run: %d of %d items would be organized (%s).", summary.Planned, summary.Total, duration)
	case summary.Mode == transfer.Copy:
		console.Success("Copied %d of %d items (%s).", summary.Copied, summary.Total, duration)
	default:
		console.Success("Moved %d of %d items (%s).", summary.Moved, summary.Total, duration)
	}

	if summary.Failed > 0 {
		console.Warn("%d of %d items failed.", summary.Failed, summary.Total)
	}
}

// runExitError converts a terminal run state into the command's error
// return, so item failures surface in the exit code.
func runExitError(summary *engine.RunSummary) error {
	if summary == nil {
		return errors.New("run produced no summary")
	}
	if summary.Phase == engine.PhaseFailed {
		return fmt.Errorf("listing source folder: %w", summary.Failure)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", summary.Failed, summary.Total)
	}
	return nil
}

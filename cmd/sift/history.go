package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sift/internal/journal"
	"sift/internal/output"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		days   int
		totals bool
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent organizing runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			console := newConsole()
			logDir := settings.Journal.Directory
			reader := journal.NewReader(logDir)

			if verify {
				results, err := reader.CheckAllSegmentsIntegrity()
				if err != nil {
					return err
				}
				console.Header("Journal integrity")
				bad := 0
				for _, result := range results {
					if result.Status == journal.IntegrityOK {
						console.Info("  %s: %s (%d events)", result.FilePath, result.Status, result.TotalLines)
						continue
					}
					bad++
					console.Error("  %s: %s (%s)", result.FilePath, result.Status, result.ErrorMessage)
				}
				if bad > 0 {
					return fmt.Errorf("%d journal segment(s) damaged", bad)
				}
			}

			runs, err := reader.ListRuns()
			if err != nil {
				return err
			}

			var since *time.Time
			if days > 0 {
				cutoff := time.Now().AddDate(0, 0, -days)
				since = &cutoff
				kept := runs[:0]
				for _, run := range runs {
					if !run.StartTime.Before(cutoff) {
						kept = append(kept, run)
					}
				}
				runs = kept
			}

			if len(runs) == 0 {
				console.Info("No runs recorded.")
				return nil
			}

			// Runs come oldest first; show the most recent tail.
			if limit > 0 && len(runs) > limit {
				runs = runs[len(runs)-limit:]
			}
			for _, run := range runs {
				printRunLine(console, run)
			}

			if totals {
				agg, err := journal.AggregateTotals(logDir, journal.TotalsOptions{Since: since, TopN: 5})
				if err != nil {
					return err
				}
				console.Header("Totals")
				console.Info("  %d runs (%d dry), %d moved, %d copied, %d failed",
					agg.Runs, agg.DryRuns, agg.Moved, agg.Copied, agg.Failed)
				for category, count := range agg.ByCategory {
					console.Info("  %-16s %d", category, count)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show, 0 for all")
	cmd.Flags().IntVar(&days, "days", 0, "only show runs from the last N days")
	cmd.Flags().BoolVar(&totals, "totals", false, "print aggregate counts across the listed period")
	cmd.Flags().BoolVar(&verify, "verify", false, "check journal file integrity first")
	return cmd
}

func printRunLine(console *output.Output, run journal.RunInfo) {
	// Pad before coloring so escape codes don't skew the column.
	status := fmt.Sprintf("%-11s", run.Status)
	if console.IsTTY() {
		status = color.New(statusAttr(run.Status)).Sprint(status)
	}

	mode := run.Mode
	if run.DryRun {
		mode += " (dry)"
	}

	console.Info("%s  %s %-11s %s",
		run.StartTime.Local().Format("2006-01-02 15:04:05"),
		status, mode, runCounts(run.Summary))
}

func statusAttr(status journal.RunStatus) color.Attribute {
	switch status {
	case journal.RunStatusCompleted:
		return color.FgGreen
	case journal.RunStatusCancelled:
		return color.FgYellow
	case journal.RunStatusFailed:
		return color.FgRed
	default:
		return color.FgCyan
	}
}

func runCounts(summary journal.RunSummary) string {
	var parts []string
	if summary.Moved > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", summary.Moved))
	}
	if summary.Copied > 0 {
		parts = append(parts, fmt.Sprintf("%d copied", summary.Copied))
	}
	if summary.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", summary.Failed))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d processed", summary.Processed)
	}
	return fmt.Sprintf("%d processed (%s)", summary.Processed, strings.Join(parts, ", "))
}

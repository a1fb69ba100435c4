package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sift/internal/engine"
	"sift/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the source folder and organize new entries as they settle",
		Long: `Watch keeps running, organizing the source folder whenever a new
entry appears and stops changing. Partial downloads and temp files are
ignored by pattern; bursts of arrivals coalesce into a single pass.
Entries that land while a pass is running are picked up by the next
one. Ctrl-C finishes the item in flight and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if modeFlag != "" {
				settings.Mode = modeFlag
			}
			mode, err := settings.TransferMode()
			if err != nil {
				return err
			}

			console := newConsole()
			warnOverlaps(console, settings)

			journalWriter := openJournal(console, settings)
			if journalWriter != nil {
				defer journalWriter.Close()
			}

			eng := engine.New(engine.Options{
				Log:     console,
				Journal: journalWriter,
			})
			dests := engine.DestinationMap(settings.Destinations.Map())

			// A buffered single-slot trigger coalesces entries that become
			// ready while a pass is running into one follow-up pass.
			trigger := make(chan struct{}, 1)
			w := watcher.New(settings.Watch, func(path string) {
				console.Verbose("Ready: %s", path)
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

			if err := w.Start(settings.Source); err != nil {
				return err
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)

			stop := make(chan struct{})
			go func() {
				<-sigs
				close(stop)
				eng.RequestCancel()
			}()

			console.Info("Watching %s (%s mode). Press Ctrl-C to stop.", settings.Source, settings.Mode)

			for {
				select {
				case <-stop:
					eng.Wait()
					summary := w.Stop()
					console.Info("Watch ended: %d entries organized, %d ignored, %d watcher errors (%s).",
						summary.Ready, summary.Ignored, summary.Errors, summary.Elapsed.Round(time.Second))
					return nil
				case <-trigger:
					if err := eng.Start(settings.Source, mode, dests); err != nil {
						console.Error("Error: %v", err)
						continue
					}
					waitWithProgress(console, eng)
					printRunSummary(console, eng.Summary())
				}
			}
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "transfer mode, move or copy (overrides settings)")
	return cmd
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sift/internal/engine"
)

func newOrganizeCmd() *cobra.Command {
	var (
		dryRun     bool
		sourceFlag string
		modeFlag   string
	)

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Run one organizing pass over the source folder",
		Long: `Organize classifies every direct entry of the source folder and
moves or copies it to the destination for its category. The pass is
sequential; Ctrl-C stops it after the item in flight. Items that fail
are reported and skipped, never aborting the pass.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if sourceFlag != "" {
				settings.Source = sourceFlag
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
				DryRun:  dryRun,
			})

			dests := engine.DestinationMap(settings.Destinations.Map())
			if err := eng.Start(settings.Source, mode, dests); err != nil {
				return err
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)
			go func() {
				for range sigs {
					eng.RequestCancel()
				}
			}()

			waitWithProgress(console, eng)

			summary := eng.Summary()
			printRunSummary(console, summary)
			return runExitError(summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and log targets without transferring anything")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "source folder (overrides settings)")
	cmd.Flags().StringVar(&modeFlag, "mode", "", "transfer mode, move or copy (overrides settings)")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"sift/internal/scan"
)

func newScanCmd() *cobra.Command {
	var sourceFlag string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report per-category size statistics for the source folder",
		Long: `Scan walks the whole tree under the source folder and reports,
per category, how many files it holds and how much space they take.
Nothing is modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if sourceFlag != "" {
				settings.Source = sourceFlag
			}

			report, err := scan.Run(settings.Source)
			if err != nil {
				return err
			}

			console := newConsole()
			console.Header("Source: %s", report.Source)
			for _, line := range report.Lines() {
				console.Info("%s", line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "", "folder to scan (overrides settings)")
	return cmd
}

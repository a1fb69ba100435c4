package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sift/internal/classifier"
	"sift/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		sourceFlag string
		baseFlag   string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter settings file and create its folders",
		Long: `Init writes a settings file with a conventional destination layout
and creates the destination folders. By default the source is the
Downloads folder and destinations live under <source>/Organized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := settingsPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("settings file already exists: %s (use --force to overwrite)", path)
			}

			settings := config.DefaultSettings()
			if sourceFlag != "" {
				settings.Source = sourceFlag
				settings.Destinations = config.DeriveLayout(filepath.Join(sourceFlag, "Organized"))
			}
			if baseFlag != "" {
				settings.Destinations = config.DeriveLayout(baseFlag)
			}

			if err := settings.Destinations.Ensure(); err != nil {
				return err
			}
			if err := config.Save(settings, path); err != nil {
				return err
			}

			console := newConsole()
			console.Success("Settings written to %s", path)
			console.Info("Source: %s (%s mode)", settings.Source, settings.Mode)
			dests := settings.Destinations.Map()
			for _, category := range classifier.Categories() {
				console.Info("  %-16s %s", category.Label(), dests[category])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "", "source folder (default: the user Downloads folder)")
	cmd.Flags().StringVar(&baseFlag, "base", "", "create destinations under this folder (default: <source>/Organized)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing settings file")
	return cmd
}

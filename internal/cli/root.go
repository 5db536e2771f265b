// Package cli implements the scraperd command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scraperd",
		Short:         "Scheduled web scraper",
		Long:          "Fetches content from target pages on a schedule, persists the results and exports them on demand.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(),
		newScrapeCmd(),
		newScheduleCmd(),
		newExportCmd(),
		newStatsCmd(),
	)

	return rootCmd
}

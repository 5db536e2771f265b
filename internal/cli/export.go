package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t77yq/scrape-scheduler/internal/export"
)

func newExportCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export scraped data to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			exporter := export.New(a.store, a.cfg.Export.Dir, a.logger)
			path, err := exporter.Export(cmd.Context(), format, output)
			if err != nil {
				return err
			}

			fmt.Printf("Exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", export.FormatCSV, "export format: csv or json")
	cmd.Flags().StringVar(&output, "output", "", "output filename (default timestamped)")

	return cmd
}

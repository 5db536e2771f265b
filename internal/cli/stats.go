package cli

import (
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.store.Statistics(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]interface{}{
				{"Total records", stats.TotalResults},
				{"Active jobs", stats.ActiveJobs},
			}
			for status, count := range stats.ByStatus {
				rows = append(rows, []interface{}{"Status " + status, count})
			}
			for source, count := range stats.BySource {
				rows = append(rows, []interface{}{"Source " + source, count})
			}

			renderTable([]string{"Metric", "Value"}, rows)
			return nil
		},
	}
}

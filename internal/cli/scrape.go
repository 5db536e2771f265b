package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

func newScrapeCmd() *cobra.Command {
	var useBrowser bool
	var noSave bool

	cmd := &cobra.Command{
		Use:   "scrape <url> [url...]",
		Short: "Scrape one or more URLs now",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			strategy := model.StrategyStatic
			if useBrowser {
				strategy = model.StrategyBrowser
			}

			rows := make([][]interface{}, 0, len(args))
			for _, target := range args {
				result, ferr := a.scraper.Fetch(cmd.Context(), target, strategy)
				if ferr != nil {
					a.logger.Warn("Scrape failed",
						zap.String("target", target),
						zap.Error(ferr))
				}

				if !noSave {
					if _, err := a.store.InsertResult(cmd.Context(), result); err != nil {
						return fmt.Errorf("failed to save result for %s: %w", target, err)
					}
				}

				rows = append(rows, []interface{}{
					result.Target,
					truncate(result.Title, 40),
					truncate(result.Content, 60),
					result.Source,
					result.Status,
				})
			}

			renderTable([]string{"URL", "Title", "Content", "Source", "Status"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useBrowser, "browser", false, "use the headless-browser strategy")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "print results without persisting them")

	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

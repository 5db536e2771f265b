package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

func newScheduleCmd() *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage recurring scraping jobs",
	}

	scheduleCmd.AddCommand(
		newScheduleAddCmd(),
		newScheduleRemoveCmd(),
		newScheduleListCmd(),
	)

	return scheduleCmd
}

func newScheduleAddCmd() *cobra.Command {
	var every string
	var useBrowser bool

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Schedule a URL for periodic scraping",
		Long:  "Schedules a URL with a named cadence (hourly, daily, weekly) or a custom spec of the form cron:minute,hour,day,month,weekday.",
		Args:  cobra.ExactArgs(1),
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

			jobID, err := a.sched.Schedule(cmd.Context(), args[0], every, strategy)
			if err != nil {
				return err
			}

			fmt.Printf("Scheduled job %s\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&every, "every", "hourly", "recurrence: hourly, daily, weekly or cron:m,h,dom,mon,dow")
	cmd.Flags().BoolVar(&useBrowser, "browser", false, "use the headless-browser strategy")

	return cmd
}

func newScheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Deactivate a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			// Jobs live in the store; hydrate the table before lookup.
			if err := a.sched.Start(cmd.Context()); err != nil {
				return err
			}
			defer a.sched.Stop()

			if err := a.sched.Unschedule(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Printf("Removed job %s\n", args[0])
			return nil
		},
	}
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			jobs, err := a.store.ListActiveJobs(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]interface{}, 0, len(jobs))
			for _, job := range jobs {
				lastRun, nextRun := "-", "-"
				if job.LastRun != nil {
					lastRun = job.LastRun.Format("2006-01-02 15:04")
				}
				if job.NextRun != nil {
					nextRun = job.NextRun.Format("2006-01-02 15:04")
				}
				rows = append(rows, []interface{}{
					job.ID, job.Target, job.Schedule, job.Strategy, lastRun, nextRun,
				})
			}

			renderTable([]string{"ID", "URL", "Schedule", "Strategy", "Last Run", "Next Run"}, rows)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Inspect and drain the retry queue",
}

var retryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued retries, soonest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		entries, err := container.Retries.List(cmd.Context(), project)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, entries); done {
			return err
		}

		now := time.Now()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROJECT\tDOI\tCATEGORY\tRETRIES\tDUE IN")
		for _, e := range entries {
			due := "now"
			if d := e.NextRetryAt.Sub(now); d > 0 {
				due = d.Round(time.Second).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.ProjectID, e.DOI, e.FailureCategory, e.RetryCount, due)
		}
		return tw.Flush()
	},
}

var retryRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Re-attempt every entry that is due now",
	Long: `Run drains due retry entries once. Projects with a live batch, in this
process or recorded as running and not stale by a server sharing the
database, are skipped and left queued.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := container.Sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, stats); done {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "due=%d downloaded=%d requeued=%d dropped=%d skipped=%d\n",
			stats.Due, stats.Downloaded, stats.Requeued, stats.Dropped, stats.Skipped)
		return nil
	},
}

func init() {
	retryListCmd.Flags().String("project", "", "only entries for this project")
	retryCmd.AddCommand(retryListCmd, retryRunCmd)
	rootCmd.AddCommand(retryCmd)
}

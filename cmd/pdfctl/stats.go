package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-source performance and failure categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := container.Sources.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, stats); done {
			return err
		}

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tATTEMPTS\tSUCCESS\tFAILED\tRATE\tAVG MS")
		for _, p := range stats.Performance {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f%%\t%.0f\n",
				p.SourceName, p.TotalAttempts, p.SuccessCount, p.FailureCount, p.SuccessRate*100, p.AvgResponseTimeMs)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if len(stats.Failures) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tCATEGORY\tCOUNT")
		for _, f := range stats.Failures {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", f.SourceName, f.Category, f.Count)
		}
		return tw.Flush()
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset-performance [SOURCE]",
	Short: "Clear performance aggregates for one source, or all when omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := ""
		if len(args) == 1 {
			source = args[0]
		}
		n, err := container.Sources.ResetPerformance(cmd.Context(), source)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %d performance rows\n", n)
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete download attempts older than --days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		n, err := container.Sources.PruneAttempts(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d attempts older than %d days\n", n, days)
		return nil
	},
}

func init() {
	pruneCmd.Flags().Int("days", 90, "age threshold in days")
	rootCmd.AddCommand(statsCmd, resetCmd, pruneCmd)
}

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/pdfhunter/internal/app"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List and tune acquisition sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources in registry order with availability and success rates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		views, err := container.Sources.List(cmd.Context())
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, views); done {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tNAME\tPRIORITY\tENABLED\tAVAILABLE\tSUCCESS\tATTEMPTS")
		for _, v := range views {
			rate, attempts := "-", int64(0)
			if v.Performance != nil {
				rate = fmt.Sprintf("%.0f%%", v.Performance.SuccessRate*100)
				attempts = v.Performance.TotalAttempts
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%t\t%t\t%s\t%d\n", v.Rank, v.Name, v.Priority, v.Enabled, v.Available, rate, attempts)
		}
		return tw.Flush()
	},
}

func toggleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: fmt.Sprintf("Mark a source %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := container.Sources.Update(cmd.Context(), args[0], app.SourceUpdate{Enabled: &enabled})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s enabled=%t\n", s.Name, s.Enabled)
			return nil
		},
	}
}

var sourcesPriorityCmd = &cobra.Command{
	Use:   "priority NAME VALUE",
	Short: "Set a source's static priority (lower runs first)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("priority must be an integer: %w", err)
		}
		s, err := container.Sources.Update(cmd.Context(), args[0], app.SourceUpdate{Priority: &p})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s priority=%d\n", s.Name, s.Priority)
		return nil
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd, toggleCmd("enable", true), toggleCmd("disable", false), sourcesPriorityCmd)
	rootCmd.AddCommand(sourcesCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire DOI...",
	Short: "Run the acquisition pipeline for DOIs outside of a batch",
	Long: `Acquire runs each DOI through the source cascade in the foreground and
prints its outcome. Files land in the download directory of --project, and
attempts are recorded against it like any batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		dir := container.Batches.ProjectDir(project)

		outcomes := make([]domain.Outcome, 0, len(args))
		for _, doi := range args {
			out, err := container.Engine.Acquire(cmd.Context(), project, dir, doi)
			if err != nil && cmd.Context().Err() != nil {
				return err
			}
			outcomes = append(outcomes, out)
		}
		if done, err := printJSON(cmd, outcomes); done {
			return err
		}

		w := cmd.OutOrStdout()
		for _, o := range outcomes {
			switch o.Status {
			case domain.OutcomeDownloaded:
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Status, o.DOI, o.Source, o.Path)
			default:
				fmt.Fprintf(w, "%s\t%s\t%s\n", o.Status, o.DOI, o.Reason)
			}
		}
		return nil
	},
}

func init() {
	acquireCmd.Flags().String("project", "cli", "project id used for the download directory and attempt log")
	rootCmd.AddCommand(acquireCmd)
}

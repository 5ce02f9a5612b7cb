package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [DOI...]",
	Short: "Check DOIs against CrossRef",
	Long: `Validate normalizes each DOI, checks its format and asks CrossRef whether it
is registered. DOIs are read from the arguments, or one per line from --file
("-" for stdin).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dois := args
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			lines, err := readLines(file)
			if err != nil {
				return err
			}
			dois = append(dois, lines...)
		}
		if len(dois) == 0 {
			return fmt.Errorf("no DOIs given")
		}

		res, err := container.Validator.Validate(cmd.Context(), dois)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, res); done {
			return err
		}

		out := cmd.OutOrStdout()
		for _, d := range res.Valid {
			fmt.Fprintf(out, "ok\t%s\n", d)
		}
		for _, inv := range res.Invalid {
			fmt.Fprintf(out, "invalid\t%s\t%s\n", inv.DOI, inv.Reason)
		}
		return nil
	},
}

func readLines(path string) ([]string, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
		defer f.Close()
	}

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func init() {
	validateCmd.Flags().StringP("file", "f", "", "read DOIs from a file, one per line")
	rootCmd.AddCommand(validateCmd)
}

// Package main is the pdfhunter admin CLI. It opens the same database as the
// server and runs source, retry and validation maintenance directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/pdfhunter/internal/app"
	"github.com/cesargomez89/pdfhunter/internal/config"
	"github.com/cesargomez89/pdfhunter/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// container is opened by the root command before any subcommand runs.
var container *app.Container

var rootCmd = &cobra.Command{
	Use:   "pdfctl",
	Short: "Administer the pdfhunter acquisition engine",
	Long: `pdfctl inspects and maintains a pdfhunter database: list and tune sources,
show performance statistics, drain the retry queue, prune old attempts and
check DOIs against CrossRef. Configuration comes from the same environment
variables and .env file as the server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.DBPath = db
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		level := "warn"
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		c, err := app.NewContainer(cmd.Context(), cfg, logger.New(logger.Config{
			Output: os.Stderr,
			Level:  level,
			Format: cfg.LogFormat,
		}))
		if err != nil {
			return err
		}
		container = c
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return nil
		}
		return container.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
}

// printJSON reports whether --json was given and, if so, writes v.
func printJSON(cmd *cobra.Command, v interface{}) (bool, error) {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		return false, nil
	}
	return true, writeJSON(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

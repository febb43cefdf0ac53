package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - rule-expression evaluation engine",
	Long: `Callisto is a rule-expression evaluation engine and rule set runtime.

It compiles MRL (Mercator Rule Language) expressions into reusable rules
and evaluates them against arbitrary data, providing:
  - One-off expression evaluation and array filtering
  - YAML rule sets with allow, deny, and tag actions
  - Hot reload from files or a git repository
  - Audit recording with SQLite persistence and retention pruning
  - Prometheus metrics and an HTTP evaluation endpoint

For more information, visit: https://github.com/mercator-hq/callisto`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}

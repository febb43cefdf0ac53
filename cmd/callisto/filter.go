package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/rule"
)

var filterFlags struct {
	dataFile string
	count    bool
	invert   bool
}

var filterCmd = &cobra.Command{
	Use:   "filter <expression>",
	Short: "Filter a JSON array through an MRL expression",
	Long: `Read a JSON array and print the elements the expression matches.

Each array element is evaluated as the thing; elements where the
expression is truthy pass the filter. Output is a JSON array.

Examples:
  # Keep critical alerts
  callisto filter 'severity == "critical"' --data-file alerts.json

  # Read from stdin
  cat users.json | callisto filter 'age >= 18'

  # Count matches instead of printing them
  callisto filter 'status == "failed"' --data-file jobs.json --count

  # Invert the match
  callisto filter 'enabled' --data-file features.json --invert`,
	Args: cobra.ExactArgs(1),
	RunE: filterThings,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringVarP(&filterFlags.dataFile, "data-file", "f", "-", `JSON array file ("-" for stdin)`)
	filterCmd.Flags().BoolVar(&filterFlags.count, "count", false, "print the match count instead of the elements")
	filterCmd.Flags().BoolVar(&filterFlags.invert, "invert", false, "keep elements that do not match")
}

func filterThings(cmd *cobra.Command, args []string) error {
	thing, err := loadThing("", filterFlags.dataFile)
	if err != nil {
		return cli.NewCommandError("filter", err)
	}
	things, ok := thing.([]any)
	if !ok {
		return cli.NewCommandError("filter", fmt.Errorf("data must be a JSON array"))
	}

	r, err := rule.Compile(args[0], rule.NewContext())
	if err != nil {
		return cli.NewCommandError("filter", fmt.Errorf("failed to compile expression: %w", err))
	}

	matched := make([]any, 0, len(things))
	if filterFlags.invert {
		for _, t := range things {
			ok, err := r.MatchesContext(cmd.Context(), t)
			if err != nil {
				return cli.NewCommandError("filter", fmt.Errorf("evaluation failed: %w", err))
			}
			if !ok {
				matched = append(matched, t)
			}
		}
	} else {
		for result := range r.FilterContext(cmd.Context(), things) {
			if result.Err != nil {
				return cli.NewCommandError("filter", fmt.Errorf("evaluation failed: %w", result.Err))
			}
			matched = append(matched, result.Thing)
		}
	}

	if filterFlags.count {
		fmt.Println(len(matched))
		return nil
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(matched)
}

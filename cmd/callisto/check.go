package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/cli"
	mrlErrors "mercator-hq/callisto/pkg/mrl/errors"
	"mercator-hq/callisto/pkg/rule"
	"mercator-hq/callisto/pkg/ruleset"
)

var checkFlags struct {
	file   string
	dir    string
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate rule set files",
	Long: `Validate YAML rule set files for syntax and semantic errors.

The check command parses rule set files and performs full validation:
  - YAML syntax validation
  - Rule set structure validation (names, actions, duplicates)
  - MRL expression compilation for every rule

Examples:
  # Check a single file
  callisto check --file rulesets/access.yaml

  # Check a directory
  callisto check --dir rulesets/

  # JSON output for CI/CD
  callisto check --dir rulesets/ --format json`,
	RunE: checkRuleSets,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.file, "file", "f", "", "rule set file to validate")
	checkCmd.Flags().StringVarP(&checkFlags.dir, "dir", "d", "", "directory of rule set files")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
}

func checkRuleSets(cmd *cobra.Command, args []string) error {
	if checkFlags.file == "" && checkFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if checkFlags.file != "" {
		files = append(files, checkFlags.file)
	}
	if checkFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(checkFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list rule set files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no rule set files found")
	}

	results := make([]CheckResult, 0, len(files))
	for _, file := range files {
		results = append(results, checkRuleSetFile(file))
	}

	if checkFlags.format == "json" {
		return outputCheckJSON(results)
	}
	return outputCheckText(results)
}

// CheckResult is the validation result for a single rule set file.
type CheckResult struct {
	File   string       `json:"file"`
	Set    string       `json:"rule_set,omitempty"`
	Rules  int          `json:"rules"`
	Valid  bool         `json:"valid"`
	Errors []CheckError `json:"errors,omitempty"`
}

// CheckError is a single validation error.
type CheckError struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

func checkRuleSetFile(path string) CheckResult {
	result := CheckResult{File: path, Valid: true}

	parser := ruleset.NewParser(rule.NewContext())
	set, err := parser.ParseFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, checkErrorFrom(err))
		return result
	}
	result.Set = set.Name
	result.Rules = len(set.Rules)
	return result
}

// checkErrorFrom extracts position information from MRL syntax errors.
// The full error text is kept since it names the offending rule.
func checkErrorFrom(err error) CheckError {
	ce := CheckError{Message: err.Error()}
	var syntaxErr *mrlErrors.SyntaxError
	if errors.As(err, &syntaxErr) {
		ce.Line = syntaxErr.Location.Line
		ce.Column = syntaxErr.Location.Column
	}
	return ce
}

func outputCheckText(results []CheckResult) error {
	totalErrors := 0

	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)

		if result.Valid {
			fmt.Printf("✓ %d rule(s) valid\n", result.Rules)
		}
		for _, e := range result.Errors {
			fmt.Printf("✗ Error: %s", e.Message)
			if e.Line > 0 {
				fmt.Printf(" (expression %d:%d)", e.Line, e.Column)
			}
			fmt.Println()
			totalErrors++
		}
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  %d file(s), %d error(s)\n", len(results), totalErrors)

	if totalErrors > 0 {
		return cli.NewCommandError("check", fmt.Errorf("validation failed"))
	}
	return nil
}

func outputCheckJSON(results []CheckResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return err
	}
	for _, result := range results {
		if !result.Valid {
			return cli.NewCommandError("check", fmt.Errorf("validation failed"))
		}
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/ruleset/engine"
	"mercator-hq/callisto/pkg/ruleset/source"
)

var testFlags struct {
	rulesPath string
	testsFile string
	format    string
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run rule set test cases",
	Long: `Execute rule set test cases against the evaluation engine.

The test command loads rule set files and a test case file, evaluates
each case's thing against the engine, and verifies the expected
decision.

Test Case Format (YAML):
  tests:
    - name: "minors are denied"
      thing:
        age: 15
        name: "Bob"
      expect:
        action: "deny"          # allow or deny
        reason: "must be an adult"  # optional: expected deny reason
        tags: ["trial"]         # optional: expected accumulated tags

Examples:
  # Run test cases against a rule set directory
  callisto test --rules rulesets/ --tests ruleset_tests.yaml

  # JSON output for CI/CD
  callisto test --rules rulesets/ --tests ruleset_tests.yaml --format json`,
	RunE: runTests,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVarP(&testFlags.rulesPath, "rules", "r", "", "rule set file or directory")
	testCmd.Flags().StringVarP(&testFlags.testsFile, "tests", "t", "", "test case file")
	testCmd.Flags().StringVar(&testFlags.format, "format", "text", "output format: text, json")

	if err := testCmd.MarkFlagRequired("rules"); err != nil {
		panic(fmt.Sprintf("failed to mark rules flag as required: %v", err))
	}
	if err := testCmd.MarkFlagRequired("tests"); err != nil {
		panic(fmt.Sprintf("failed to mark tests flag as required: %v", err))
	}
}

// TestSuite is a YAML test case file.
type TestSuite struct {
	Tests []TestCase `yaml:"tests"`
}

// TestCase is one evaluation with an expected decision.
type TestCase struct {
	Name   string      `yaml:"name"`
	Thing  any         `yaml:"thing"`
	Expect Expectation `yaml:"expect"`
}

// Expectation is the decision a test case requires.
type Expectation struct {
	Action string   `yaml:"action"`
	Reason string   `yaml:"reason"`
	Tags   []string `yaml:"tags"`
}

// TestResult is the outcome of one test case.
type TestResult struct {
	Name    string `yaml:"name" json:"name"`
	Passed  bool   `yaml:"passed" json:"passed"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

func runTests(cmd *cobra.Command, args []string) error {
	suite, err := loadTestSuite(testFlags.testsFile)
	if err != nil {
		return cli.NewCommandError("test", fmt.Errorf("failed to load test cases: %w", err))
	}
	if len(suite.Tests) == 0 {
		return fmt.Errorf("no test cases found in %s", testFlags.testsFile)
	}

	// Suppress engine logs during testing.
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
	defer slog.SetDefault(prev)

	engineConfig := engine.DefaultConfig()
	engineConfig.FailMode = engine.FailClosed

	src := source.NewFile(testFlags.rulesPath, slog.Default())
	eng, err := engine.New(cmd.Context(), src, engineConfig)
	if err != nil {
		return cli.NewCommandError("test", fmt.Errorf("failed to create engine: %w", err))
	}
	defer eng.Close()

	start := time.Now()
	results := make([]TestResult, 0, len(suite.Tests))
	failed := 0
	for _, tc := range suite.Tests {
		result := runTestCase(cmd, eng, tc)
		if !result.Passed {
			failed++
		}
		results = append(results, result)
	}
	elapsed := time.Since(start)

	if testFlags.format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		fmt.Println("Running rule set tests...")
		fmt.Println()
		for _, result := range results {
			if result.Passed {
				fmt.Printf("✓ %s\n", result.Name)
			} else {
				fmt.Printf("✗ %s: %s\n", result.Name, result.Message)
			}
		}
		fmt.Println()
		fmt.Printf("%d passed, %d failed (%s)\n", len(results)-failed, failed, elapsed.Round(time.Millisecond))
	}

	if failed > 0 {
		return cli.NewCommandError("test", fmt.Errorf("%d test(s) failed", failed))
	}
	return nil
}

func loadTestSuite(path string) (*TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("invalid test file: %w", err)
	}
	return &suite, nil
}

func runTestCase(cmd *cobra.Command, eng *engine.Engine, tc TestCase) TestResult {
	result := TestResult{Name: tc.Name, Passed: true}

	decision, err := eng.Evaluate(cmd.Context(), tc.Thing)
	if err != nil {
		result.Passed = false
		result.Message = fmt.Sprintf("evaluation failed: %v", err)
		return result
	}
	if decision.Err != nil {
		result.Passed = false
		result.Message = fmt.Sprintf("rule error: %v", decision.Err)
		return result
	}

	if string(decision.Action) != tc.Expect.Action {
		result.Passed = false
		result.Message = fmt.Sprintf("action = %q, want %q", decision.Action, tc.Expect.Action)
		return result
	}
	if tc.Expect.Reason != "" && decision.Reason != tc.Expect.Reason {
		result.Passed = false
		result.Message = fmt.Sprintf("reason = %q, want %q", decision.Reason, tc.Expect.Reason)
		return result
	}
	for _, tag := range tc.Expect.Tags {
		if !slices.Contains(decision.Tags, tag) {
			result.Passed = false
			result.Message = fmt.Sprintf("tags = %v, missing %q", decision.Tags, tag)
			return result
		}
	}
	return result
}

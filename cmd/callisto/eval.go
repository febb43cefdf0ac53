package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/mrl/types"
	"mercator-hq/callisto/pkg/rule"
)

var evalFlags struct {
	data     string
	dataFile string
	format   string
}

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate an MRL expression",
	Long: `Compile an MRL expression and evaluate it against JSON data.

The data is the "thing" symbols resolve against: a JSON object makes its
keys available as symbols, so 'age >= 21' matches {"age": 25}. Without
data the expression is evaluated against null.

Examples:
  # Evaluate against inline JSON
  callisto eval 'age >= 21 and name =~ "^Ali"' --data '{"age": 25, "name": "Alice"}'

  # Evaluate against a JSON file
  callisto eval 'items.length > 3' --data-file order.json

  # Read data from stdin
  cat order.json | callisto eval 'total > 100' --data-file -

  # Pure expression, no data
  callisto eval '(1000 + 24) // 7'

  # JSON output for scripting
  callisto eval 'tags[0]' --data '{"tags": ["a", "b"]}' --format json`,
	Args: cobra.ExactArgs(1),
	RunE: evalExpression,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.data, "data", "d", "", "inline JSON data to evaluate against")
	evalCmd.Flags().StringVarP(&evalFlags.dataFile, "data-file", "f", "", `JSON data file ("-" for stdin)`)
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "text", "output format: text, json")
}

func evalExpression(cmd *cobra.Command, args []string) error {
	thing, err := loadThing(evalFlags.data, evalFlags.dataFile)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	r, err := rule.Compile(args[0], rule.NewContext())
	if err != nil {
		return cli.NewCommandError("eval", fmt.Errorf("failed to compile expression: %w", err))
	}

	value, err := r.EvaluateContext(cmd.Context(), thing)
	if err != nil {
		return cli.NewCommandError("eval", fmt.Errorf("evaluation failed: %w", err))
	}

	if evalFlags.format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		return encoder.Encode(renderValue(value))
	}
	fmt.Println(formatValue(value))
	return nil
}

// loadThing reads the host value from the --data flag, a file, or
// stdin. Both flags unset means a null thing.
func loadThing(data, dataFile string) (any, error) {
	if data != "" && dataFile != "" {
		return nil, fmt.Errorf("--data and --data-file are mutually exclusive")
	}

	var raw []byte
	switch {
	case data != "":
		raw = []byte(data)
	case dataFile == "-":
		var err error
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	case dataFile != "":
		var err error
		raw, err = os.ReadFile(dataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
	default:
		return nil, nil
	}

	var thing any
	if err := json.Unmarshal(raw, &thing); err != nil {
		return nil, fmt.Errorf("invalid JSON data: %w", err)
	}
	return thing, nil
}

// renderValue converts an MRL value into a JSON-marshalable Go value.
// Integral numbers become int64, other numbers float64.
func renderValue(v types.Value) any {
	switch hv := v.(type) {
	case types.Null:
		return nil
	case types.Bool:
		return hv.Value
	case types.String:
		return hv.Value
	case types.Number:
		if hv.IsInt() {
			if n, err := hv.Int64(); err == nil {
				return n
			}
		}
		return hv.Float64()
	case types.Array:
		items := make([]any, len(hv.Items))
		for i, item := range hv.Items {
			items[i] = renderValue(item)
		}
		return items
	case types.Mapping:
		entries := make(map[string]any, len(hv.Entries))
		for k, item := range hv.Entries {
			entries[k] = renderValue(item)
		}
		return entries
	}
	return fmt.Sprint(types.ToAny(v))
}

// formatValue renders an MRL value for text output.
func formatValue(v types.Value) string {
	switch hv := v.(type) {
	case types.Null:
		return "null"
	case types.Bool:
		return fmt.Sprintf("%t", hv.Value)
	case types.String:
		return hv.Value
	case types.Number:
		return hv.String()
	}
	out, err := json.Marshal(renderValue(v))
	if err != nil {
		return fmt.Sprint(types.ToAny(v))
	}
	return string(out)
}

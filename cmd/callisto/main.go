// Callisto is a rule-expression evaluation engine and rule set runtime.
//
// It compiles MRL expressions into reusable rules and evaluates them
// against arbitrary host values, either as one-off expressions or as
// YAML rule sets served over HTTP with hot reload, audit recording,
// and Prometheus metrics.
//
// Usage:
//
//	# Evaluate an expression against inline JSON data
//	callisto eval 'age >= 21 and name =~ "^Ali"' --data '{"age": 25, "name": "Alice"}'
//
//	# Filter a JSON array through an expression
//	callisto filter 'severity == "critical"' --data-file alerts.json
//
//	# Validate rule set files
//	callisto check --dir rulesets/
//
//	# Run rule set test cases
//	callisto test --rules rulesets/ --tests ruleset_tests.yaml
//
//	# Start the evaluation server
//	callisto run --config /etc/callisto/config.yaml
//
//	# Query the audit database
//	callisto audit query --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"
package main

func main() {
	Execute()
}

package engine

import (
	"time"

	"mercator-hq/callisto/pkg/ruleset"
)

// Decision is the outcome of evaluating all loaded rule sets against
// one thing.
type Decision struct {
	// Action is the final outcome: allow or deny.
	Action ruleset.Action

	// RuleSet and Rule name the deciding rule when a deny decided the
	// outcome.
	RuleSet string
	Rule    string

	// Reason is the deny reason, when denied.
	Reason string

	// Tags accumulated from tag rules along the way.
	Tags []string

	// Matched lists every rule whose condition was truthy, in
	// evaluation order.
	Matched []MatchedRule

	// Err holds the evaluation error when the fail mode decided the
	// outcome instead of a rule.
	Err error

	// EvaluationTime is how long the evaluation took.
	EvaluationTime time.Duration
}

// Denied reports whether the decision denies the thing.
func (d *Decision) Denied() bool {
	return d.Action == ruleset.ActionDeny
}

// MatchedRule records one rule whose condition matched.
type MatchedRule struct {
	RuleSet string
	Rule    string
	Action  ruleset.Action
}

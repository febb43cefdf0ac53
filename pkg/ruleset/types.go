package ruleset

import (
	"fmt"

	"mercator-hq/callisto/pkg/rule"
)

// Action is what a matching rule contributes to the decision.
type Action string

const (
	// ActionAllow explicitly allows the thing and stops evaluation of the
	// containing set.
	ActionAllow Action = "allow"

	// ActionDeny denies the thing and stops evaluation entirely.
	ActionDeny Action = "deny"

	// ActionTag attaches the rule's tags to the decision and continues.
	ActionTag Action = "tag"
)

// valid reports whether the action is one of the known values.
func (a Action) valid() bool {
	switch a {
	case ActionAllow, ActionDeny, ActionTag:
		return true
	}
	return false
}

// RuleSet is one parsed rule set document.
type RuleSet struct {
	// Name uniquely identifies the set within an engine.
	Name string `yaml:"name"`

	// Description is free-form documentation.
	Description string `yaml:"description,omitempty"`

	// Version is the document version string, for operator bookkeeping.
	Version string `yaml:"version,omitempty"`

	// Priority orders sets within the engine; lower evaluates first.
	Priority int `yaml:"priority,omitempty"`

	// Rules are evaluated in listed order after priority sorting.
	Rules []*RuleDef `yaml:"rules"`

	// SourceFile is the file the set was loaded from, when applicable.
	SourceFile string `yaml:"-"`
}

// RuleDef is one rule within a set.
type RuleDef struct {
	// Name uniquely identifies the rule within its set.
	Name string `yaml:"name"`

	// Description is free-form documentation.
	Description string `yaml:"description,omitempty"`

	// When is the MRL expression deciding whether the rule applies.
	When string `yaml:"when"`

	// Action taken when the expression is truthy. Defaults to deny.
	Action Action `yaml:"action,omitempty"`

	// Reason is surfaced on deny decisions.
	Reason string `yaml:"reason,omitempty"`

	// Tags are attached to the decision by tag rules.
	Tags []string `yaml:"tags,omitempty"`

	// Priority orders rules within the set; lower evaluates first.
	Priority int `yaml:"priority,omitempty"`

	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the rule participates in evaluation.
func (r *RuleDef) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// EnabledRules returns the set's enabled rules in evaluation order.
func (s *RuleSet) EnabledRules() []*RuleDef {
	rules := make([]*RuleDef, 0, len(s.Rules))
	for _, r := range s.Rules {
		if r.IsEnabled() {
			rules = append(rules, r)
		}
	}
	return rules
}

// CompiledSet is a rule set with every expression compiled against one
// evaluation context. It is immutable and safe for concurrent use.
type CompiledSet struct {
	Set   *RuleSet
	Rules []*CompiledRule
}

// CompiledRule pairs a rule definition with its compiled expression.
type CompiledRule struct {
	Def  *RuleDef
	Expr *rule.Rule
}

// Compile compiles every enabled rule in the set against rctx. It fails
// on the first rule whose expression does not compile; a set is loaded
// atomically or not at all.
func (s *RuleSet) Compile(rctx *rule.Context) (*CompiledSet, error) {
	rules := s.EnabledRules()
	compiled := make([]*CompiledRule, 0, len(rules))
	for _, def := range rules {
		expr, err := rule.Compile(def.When, rctx)
		if err != nil {
			return nil, fmt.Errorf("rule set %q, rule %q: %w", s.Name, def.Name, err)
		}
		compiled = append(compiled, &CompiledRule{Def: def, Expr: expr})
	}
	return &CompiledSet{Set: s, Rules: compiled}, nil
}

package ruleset

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"mercator-hq/callisto/pkg/rule"
)

// Parser parses and validates rule set documents.
type Parser struct {
	rctx *rule.Context
}

// NewParser creates a parser. Expressions are validated by compiling
// them against rctx; a nil rctx uses the default evaluation context.
func NewParser(rctx *rule.Context) *Parser {
	if rctx == nil {
		rctx = rule.NewContext()
	}
	return &Parser{rctx: rctx}
}

// ParseFile parses one rule set document from a file.
func (p *Parser) ParseFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set file %q: %w", path, err)
	}
	set, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("rule set file %q: %w", path, err)
	}
	set.SourceFile = path
	return set, nil
}

// ParseBytes parses one rule set document from YAML bytes. Unknown
// fields are rejected so typos in documents fail loudly instead of
// being silently dropped.
func (p *Parser) ParseBytes(data []byte) (*RuleSet, error) {
	var set RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("invalid rule set document: %w", err)
	}

	if err := p.validate(&set); err != nil {
		return nil, err
	}

	sortRules(set.Rules)
	return &set, nil
}

// validate checks the structural invariants of a parsed set and
// compiles every expression so broken rules are rejected at load time.
func (p *Parser) validate(set *RuleSet) error {
	if set.Name == "" {
		return fmt.Errorf("rule set name is required")
	}
	if len(set.Rules) == 0 {
		return fmt.Errorf("rule set %q has no rules", set.Name)
	}

	seen := make(map[string]bool, len(set.Rules))
	for i, def := range set.Rules {
		if def == nil {
			return fmt.Errorf("rule set %q: rule %d is empty", set.Name, i)
		}
		if def.Name == "" {
			return fmt.Errorf("rule set %q: rule %d has no name", set.Name, i)
		}
		if seen[def.Name] {
			return fmt.Errorf("rule set %q: duplicate rule name %q", set.Name, def.Name)
		}
		seen[def.Name] = true

		if def.When == "" {
			return fmt.Errorf("rule set %q, rule %q: when expression is required", set.Name, def.Name)
		}
		if _, err := rule.Compile(def.When, p.rctx); err != nil {
			return fmt.Errorf("rule set %q, rule %q: %w", set.Name, def.Name, err)
		}

		if def.Action == "" {
			def.Action = ActionDeny
		}
		if !def.Action.valid() {
			return fmt.Errorf("rule set %q, rule %q: unknown action %q", set.Name, def.Name, def.Action)
		}
		if def.Action == ActionTag && len(def.Tags) == 0 {
			return fmt.Errorf("rule set %q, rule %q: tag action requires tags", set.Name, def.Name)
		}
	}
	return nil
}

// sortRules orders rules by priority, keeping document order for equal
// priorities.
func sortRules(rules []*RuleDef) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
}

// SortSets orders rule sets by priority, keeping load order for equal
// priorities.
func SortSets(sets []*RuleSet) {
	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].Priority < sets[j].Priority
	})
}

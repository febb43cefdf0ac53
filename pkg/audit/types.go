package audit

import (
	"context"
	"time"
)

// Outcome classifies how an evaluation ended.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
	OutcomeError Outcome = "error"
)

// Record is one audited rule evaluation.
type Record struct {
	// ID is a UUID assigned by the recorder.
	ID string `json:"id"`

	// Time is when the evaluation started.
	Time time.Time `json:"time"`

	// RuleSet and Rule name the deciding rule, when one matched.
	RuleSet string `json:"rule_set,omitempty"`
	Rule    string `json:"rule,omitempty"`

	// Expression is the MRL text of the deciding rule.
	Expression string `json:"expression,omitempty"`

	// Outcome is the evaluation result class.
	Outcome Outcome `json:"outcome"`

	// Reason is the deny reason, when the outcome is deny.
	Reason string `json:"reason,omitempty"`

	// Tags accumulated during the evaluation.
	Tags []string `json:"tags,omitempty"`

	// Thing is the JSON rendering of the evaluated host value.
	Thing string `json:"thing,omitempty"`

	// Error is the evaluation error message, when the outcome is error.
	Error string `json:"error,omitempty"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Query filters stored records. Zero-valued fields do not filter.
type Query struct {
	// StartTime and EndTime bound Record.Time.
	StartTime *time.Time
	EndTime   *time.Time

	// RuleSet and Rule filter by the deciding rule.
	RuleSet string
	Rule    string

	// Outcome filters by result class.
	Outcome Outcome

	// Limit and Offset paginate results. A zero limit means no limit.
	Limit  int
	Offset int
}

// Matches reports whether a record passes the query's filters,
// pagination aside.
func (q *Query) Matches(r *Record) bool {
	if q.StartTime != nil && r.Time.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.Time.After(*q.EndTime) {
		return false
	}
	if q.RuleSet != "" && r.RuleSet != q.RuleSet {
		return false
	}
	if q.Rule != "" && r.Rule != q.Rule {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// Storage persists audit records.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the query, newest first.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns how many records match the query.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many went.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases storage resources.
	Close() error
}

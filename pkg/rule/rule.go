package rule

import (
	"context"

	"mercator-hq/callisto/pkg/mrl/ast"
	rerrors "mercator-hq/callisto/pkg/mrl/errors"
	"mercator-hq/callisto/pkg/mrl/parser"
	"mercator-hq/callisto/pkg/mrl/types"
)

// Rule is a compiled MRL expression bound to a Context. It is immutable
// after Compile and safe for unsynchronized concurrent evaluation.
type Rule struct {
	text string
	root ast.Node
	rctx *Context
}

// Compile parses rule text into a Rule bound to rctx (or a default
// context when rctx is nil). Compilation is atomic: on any syntax error
// no Rule is produced and the error carries the offending position.
func Compile(text string, rctx *Context) (*Rule, error) {
	if rctx == nil {
		rctx = NewContext()
	}
	root, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	return &Rule{text: text, root: root, rctx: rctx}, nil
}

// MustCompile is Compile for rule text known to be valid, such as
// compile-time constants. It panics on syntax errors.
func MustCompile(text string, rctx *Context) *Rule {
	r, err := Compile(text, rctx)
	if err != nil {
		panic(err)
	}
	return r
}

// Text returns the original rule text.
func (r *Rule) Text() string {
	return r.text
}

// Evaluate runs the rule against thing in blocking mode, to completion
// on the calling goroutine. A resolver or callable producing a value
// that is not yet available fails with a *errors.DeferredValueError.
func (r *Rule) Evaluate(thing any) (types.Value, error) {
	return r.run(newBlockingState(thing))
}

// EvaluateContext runs the rule against thing in suspension-capable
// mode: deferred values are awaited under ctx, and cancellation of ctx
// while suspended propagates to the caller. For inputs where nothing
// defers, the result is identical to Evaluate.
func (r *Rule) EvaluateContext(ctx context.Context, thing any) (types.Value, error) {
	return r.run(newSuspendableState(ctx, thing))
}

// run performs one evaluation over a freshly allocated state. The state
// is dropped when this returns, whatever the exit path.
func (r *Rule) run(st *EvaluationState) (types.Value, error) {
	e := &evaluator{rctx: r.rctx}
	v, err := e.eval(r.root, st)
	if err != nil {
		return nil, rerrors.WithRuleText(err, r.text)
	}
	return v, nil
}

// Matches evaluates the rule in blocking mode and reports the
// truthiness of the result.
func (r *Rule) Matches(thing any) (bool, error) {
	v, err := r.Evaluate(thing)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// MatchesContext evaluates the rule in suspension-capable mode and
// reports the truthiness of the result.
func (r *Rule) MatchesContext(ctx context.Context, thing any) (bool, error) {
	v, err := r.EvaluateContext(ctx, thing)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// Filter evaluates the rule against each element of things in order and
// returns the elements the rule is truthy for. The first evaluation
// error aborts the filter.
func (r *Rule) Filter(things []any) ([]any, error) {
	var kept []any
	for _, thing := range things {
		ok, err := r.Matches(thing)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, thing)
		}
	}
	return kept, nil
}

// FilterResult is one element produced by FilterContext: a thing the
// rule matched, or the error that ended the filter.
type FilterResult struct {
	Thing any
	Err   error
}

// FilterContext lazily filters things through the rule in
// suspension-capable mode. Matching elements are delivered strictly one
// at a time, in input order, over an unbuffered channel: the next
// element is not evaluated until the consumer has received the previous
// one. The channel is closed after the last element, after the first
// evaluation error (delivered as a FilterResult with Err set), or when
// ctx is cancelled.
func (r *Rule) FilterContext(ctx context.Context, things []any) <-chan FilterResult {
	out := make(chan FilterResult)
	go func() {
		defer close(out)
		for _, thing := range things {
			ok, err := r.MatchesContext(ctx, thing)
			if err != nil {
				select {
				case out <- FilterResult{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if !ok {
				continue
			}
			select {
			case out <- FilterResult{Thing: thing}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

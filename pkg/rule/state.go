package rule

import (
	"context"

	rerrors "mercator-hq/callisto/pkg/mrl/errors"
	"mercator-hq/callisto/pkg/mrl/types"
)

// EvaluationState is the per-call scratch state of one evaluation: the
// capture groups of the most recent regex match and the stack of
// comprehension variable scopes.
//
// Its lifecycle is exactly one call to a Rule entry point. It is
// allocated at call start, threaded as an explicit parameter through
// every recursive evaluation step, and dropped when the call returns by
// success, error, or cancellation. It is never stored on the Rule or
// Context, so it is structurally unreachable from any other concurrently
// executing evaluation, even one sharing the same Rule and Context, and
// even across suspension points.
type EvaluationState struct {
	// thing is the host value this evaluation runs against.
	thing any

	// ctx is non-nil only in suspension-capable mode, where it governs
	// awaiting deferred values and cancellation.
	ctx context.Context

	// groups holds the capture groups of the most recent regex match in
	// this evaluation. Empty after a match without groups or after a
	// failed match.
	groups []string

	// scopes is the stack of comprehension variable bindings, innermost
	// last.
	scopes []map[string]types.Value
}

// newBlockingState creates the state for a blocking evaluation.
func newBlockingState(thing any) *EvaluationState {
	return &EvaluationState{thing: thing}
}

// newSuspendableState creates the state for a suspension-capable
// evaluation under ctx.
func newSuspendableState(ctx context.Context, thing any) *EvaluationState {
	return &EvaluationState{thing: thing, ctx: ctx}
}

// await realizes a pending thunk. Blocking mode cannot wait, so it fails
// with a DeferredValueError naming what produced the deferred value;
// suspension-capable mode runs the thunk under the call's context.
func (st *EvaluationState) await(name string, th Thunk) (types.Value, error) {
	if st.ctx == nil {
		return nil, &rerrors.DeferredValueError{Name: name}
	}
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}
	return th(st.ctx)
}

// realize unwraps a resolution result, awaiting it when pending.
func (st *EvaluationState) realize(name string, res Result) (types.Value, error) {
	if res.Pending != nil {
		return st.await(name, res.Pending)
	}
	if res.Value == nil {
		return types.Null{}, nil
	}
	return res.Value, nil
}

// pushScope enters a comprehension scope binding one loop variable.
func (st *EvaluationState) pushScope(name string, v types.Value) {
	st.scopes = append(st.scopes, map[string]types.Value{name: v})
}

// popScope leaves the innermost comprehension scope.
func (st *EvaluationState) popScope() {
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// lookupScope finds a comprehension binding, innermost scope first.
func (st *EvaluationState) lookupScope(name string) (types.Value, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if v, ok := st.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// scopeDepth returns the current comprehension scope depth. It is zero
// at entry and must be zero again on every exit path.
func (st *EvaluationState) scopeDepth() int {
	return len(st.scopes)
}

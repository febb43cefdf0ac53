// Package rule compiles and evaluates MRL rule expressions against
// arbitrary host values.
//
// A Rule is produced by Compile and is immutable afterwards: it may be
// evaluated any number of times, interleaved or genuinely in parallel,
// without synchronization. The Context a rule is compiled with is equally
// immutable configuration (a symbol resolver, an optional default value
// for unresolved symbols, regex flags and a timezone for time builtins)
// and never holds per-evaluation state.
//
// Evaluation comes in two modes sharing one tree-walking algorithm:
//
//   - Rule.Evaluate runs blocking on the calling goroutine. If a resolver
//     or callable produces a value that is not yet available, evaluation
//     fails with a *errors.DeferredValueError, because blocking mode
//     cannot wait.
//   - Rule.EvaluateContext is suspension-capable: deferred values are
//     awaited under the supplied context.Context, and cancellation
//     propagates to the caller.
//
// For identical inputs where nothing defers, the two modes produce
// identical results.
//
// All transient evaluation state, the capture groups of the most recent
// regex match and the variable scopes of comprehensions, lives in a
// per-call EvaluationState threaded through the walk as an explicit
// parameter. Nothing per-call is ever reachable from the Rule or Context,
// so concurrent evaluations of one shared rule cannot observe each
// other's regex groups or loop bindings.
package rule

// Package errors defines the error taxonomy surfaced by the MRL parser
// and evaluator.
//
// Parse failures are reported as *SyntaxError with a position in the rule
// text. Evaluation failures are reported as one of the resolution error
// types (*SymbolResolutionError, *AttributeResolutionError,
// *ItemResolutionError), *TypeError for illegal operator and kind
// combinations, *RegexSyntaxError for bad patterns, or *DeferredValueError
// when blocking evaluation encounters a value that is not yet available.
// None of these are retried by the engine; retry policy belongs to the
// caller.
//
// Every error carries the original rule text once it has passed through a
// Rule entry point (see WithRuleText). Callers are expected to use
// errors.As from the standard library to inspect the concrete type:
//
//	var serr *errors.SymbolResolutionError
//	if stderrors.As(err, &serr) {
//	    log.Warn("unknown symbol", "symbol", serr.Symbol)
//	}
package errors

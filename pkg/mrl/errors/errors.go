package errors

import "fmt"

// SyntaxError reports a lexical or syntactic error in rule text. Compile
// fails atomically: no Rule is produced alongside a SyntaxError.
type SyntaxError struct {
	Message  string   // What went wrong
	Rule     string   // Original rule text
	Location Location // Position of the offending token
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Location.IsValid() {
		return fmt.Sprintf("syntax error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("syntax error: %s", e.Message)
}

// SymbolResolutionError reports a bare symbol that the resolver could not
// map to a value, with no default value policy configured.
type SymbolResolutionError struct {
	Symbol string // Name that failed to resolve
	Rule   string // Original rule text
}

// Error implements the error interface.
func (e *SymbolResolutionError) Error() string {
	return fmt.Sprintf("symbol %q could not be resolved", e.Symbol)
}

// AttributeResolutionError reports a failed attribute access (base.name).
type AttributeResolutionError struct {
	Attribute string // Attribute name that failed to resolve
	BaseKind  string // Kind of the base value, when known
	Rule      string // Original rule text
}

// Error implements the error interface.
func (e *AttributeResolutionError) Error() string {
	if e.BaseKind != "" {
		return fmt.Sprintf("attribute %q could not be resolved on %s value", e.Attribute, e.BaseKind)
	}
	return fmt.Sprintf("attribute %q could not be resolved", e.Attribute)
}

// ItemResolutionError reports a failed subscript access (base[key]).
type ItemResolutionError struct {
	Key      string // String form of the key that failed to resolve
	BaseKind string // Kind of the base value, when known
	Rule     string // Original rule text
}

// Error implements the error interface.
func (e *ItemResolutionError) Error() string {
	if e.BaseKind != "" {
		return fmt.Sprintf("item %q could not be resolved on %s value", e.Key, e.BaseKind)
	}
	return fmt.Sprintf("item %q could not be resolved", e.Key)
}

// TypeError reports an operator applied to value kinds it is not defined
// for, such as comparing a number with a string.
type TypeError struct {
	Op    string // Operator name
	Left  string // Kind of the left (or sole) operand
	Right string // Kind of the right operand, empty for unary operators
	Rule  string // Original rule text
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Right == "" {
		return fmt.Sprintf("operator %q is not defined for %s", e.Op, e.Left)
	}
	return fmt.Sprintf("operator %q is not defined for %s and %s", e.Op, e.Left, e.Right)
}

// RegexSyntaxError reports a regex-match operation whose pattern failed to
// compile.
type RegexSyntaxError struct {
	Pattern string // The offending pattern
	Rule    string // Original rule text
	Err     error  // Underlying regexp error
}

// Error implements the error interface.
func (e *RegexSyntaxError) Error() string {
	return fmt.Sprintf("invalid regex pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying regexp compilation error.
func (e *RegexSyntaxError) Unwrap() error {
	return e.Err
}

// DeferredValueError reports a not-yet-available value encountered during
// blocking evaluation, which cannot wait. The same rule evaluated through
// the suspension-capable entry point would suspend instead.
type DeferredValueError struct {
	Name string // Symbol, attribute or callee that produced the deferred value
	Rule string // Original rule text
}

// Error implements the error interface.
func (e *DeferredValueError) Error() string {
	return fmt.Sprintf("%q produced a deferred value during blocking evaluation", e.Name)
}

// EvaluationError reports a runtime failure that is not a resolution or
// type error, such as division by zero.
type EvaluationError struct {
	Message string
	Rule    string // Original rule text
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return e.Message
}

// WithRuleText attaches the original rule text to err if it is one of the
// taxonomy types defined in this package, and returns err unchanged
// otherwise. Rule entry points call this once so that every surfaced error
// carries the text it came from.
func WithRuleText(err error, text string) error {
	switch e := err.(type) {
	case *SyntaxError:
		e.Rule = text
	case *SymbolResolutionError:
		e.Rule = text
	case *AttributeResolutionError:
		e.Rule = text
	case *ItemResolutionError:
		e.Rule = text
	case *TypeError:
		e.Rule = text
	case *RegexSyntaxError:
		e.Rule = text
	case *DeferredValueError:
		e.Rule = text
	case *EvaluationError:
		e.Rule = text
	}
	return err
}

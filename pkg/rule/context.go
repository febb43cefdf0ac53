package rule

import (
	"time"

	"mercator-hq/callisto/pkg/mrl/types"
)

// RegexFlags adjust how patterns in =~ and !~ operations are compiled.
type RegexFlags uint

const (
	// RegexCaseInsensitive makes pattern matching case-insensitive.
	RegexCaseInsensitive RegexFlags = 1 << iota

	// RegexDotAll lets "." in patterns match newlines.
	RegexDotAll

	// RegexMultiline makes ^ and $ match at line boundaries.
	RegexMultiline
)

// expr returns the inline flag prefix for compiling patterns.
func (f RegexFlags) expr() string {
	var flags string
	if f&RegexCaseInsensitive != 0 {
		flags += "i"
	}
	if f&RegexDotAll != 0 {
		flags += "s"
	}
	if f&RegexMultiline != 0 {
		flags += "m"
	}
	if flags == "" {
		return ""
	}
	return "(?" + flags + ")"
}

// Context is the immutable configuration a Rule is compiled with. It
// holds the resolver and evaluation options only, never any mutable
// per-evaluation state, and is safe for unsynchronized concurrent use
// by any number of evaluations.
type Context struct {
	resolver     Resolver
	defaultValue types.Value // nil: unresolved symbols are errors
	regexFlags   RegexFlags
	timezone     *time.Location
}

// ContextOption configures a Context during construction.
type ContextOption func(*Context)

// WithResolver sets the symbol resolver. The default is DefaultResolver
// (attribute access falling back to key/index access).
func WithResolver(r Resolver) ContextOption {
	return func(c *Context) { c.resolver = r }
}

// WithDefaultValue makes unresolved symbols evaluate to v instead of
// failing with a SymbolResolutionError.
func WithDefaultValue(v types.Value) ContextOption {
	return func(c *Context) { c.defaultValue = v }
}

// WithRegexFlags sets flags applied to every pattern compiled for the
// =~ and !~ operators.
func WithRegexFlags(f RegexFlags) ContextOption {
	return func(c *Context) { c.regexFlags = f }
}

// WithTimezone sets the timezone used by the $now and $today builtins.
// The default is UTC.
func WithTimezone(loc *time.Location) ContextOption {
	return func(c *Context) { c.timezone = loc }
}

// NewContext creates an evaluation context. With no options it uses the
// default resolver, no default value policy, no regex flags, and UTC.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		resolver: DefaultResolver,
		timezone: time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

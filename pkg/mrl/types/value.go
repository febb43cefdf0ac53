package types

import (
	"context"
	"fmt"
)

// Kind identifies the runtime kind of a Value. MRL has a strong dynamic
// type system with no automatic coercion between kinds.
type Kind string

const (
	KindNull     Kind = "null"
	KindBool     Kind = "boolean"
	KindNumber   Kind = "number"
	KindString   Kind = "string"
	KindArray    Kind = "array"
	KindMapping  Kind = "mapping"
	KindCallable Kind = "callable"
	KindOpaque   Kind = "opaque"
)

// Value is the interface for all MRL runtime values. Implementations are
// restricted to this package by the sealed marker.
type Value interface {
	// Kind returns the runtime kind of the value.
	Kind() Kind

	// Truthy reports whether the value counts as true in a boolean
	// position. Null, false, zero, and empty strings/arrays/mappings are
	// false; everything else is true.
	Truthy() bool

	value() // sealed marker
}

// Null is the null value.
type Null struct{}

func (Null) Kind() Kind   { return KindNull }
func (Null) Truthy() bool { return false }
func (Null) value()       {}

// Bool is a boolean value.
type Bool struct {
	Value bool
}

func (b Bool) Kind() Kind   { return KindBool }
func (b Bool) Truthy() bool { return b.Value }
func (Bool) value()         {}

// String is a string value.
type String struct {
	Value string
}

func (s String) Kind() Kind   { return KindString }
func (s String) Truthy() bool { return s.Value != "" }
func (String) value()         {}

// Array is an ordered sequence of values. Arrays are treated as immutable
// after construction; the engine never mutates Items in place.
type Array struct {
	Items []Value
}

func (a Array) Kind() Kind   { return KindArray }
func (a Array) Truthy() bool { return len(a.Items) > 0 }
func (Array) value()         {}

// Mapping is a string-keyed collection of values. Key order is not
// significant.
type Mapping struct {
	Entries map[string]Value
}

func (m Mapping) Kind() Kind   { return KindMapping }
func (m Mapping) Truthy() bool { return len(m.Entries) > 0 }
func (Mapping) value()         {}

// Opaque wraps a host object that has no direct MRL representation, such
// as a struct the rule navigates into with attribute access. Opaque values
// support no operators; they exist so attribute chains and bound methods
// on host objects keep working.
type Opaque struct {
	Raw any
}

func (Opaque) Kind() Kind     { return KindOpaque }
func (o Opaque) Truthy() bool { return o.Raw != nil }
func (Opaque) value()         {}

// Callable is a reference to a host function or bound method. It is a
// closed variant fixed at lookup time: either immediate (the result is
// available as soon as the call returns) or suspending (the result may not
// be available yet, and the call can only be made from the
// suspension-capable evaluation path).
type Callable struct {
	// Name identifies the callable in error messages.
	Name string

	fn    func(args []Value) (Value, error)
	ctxFn func(ctx context.Context, args []Value) (Value, error)
}

func (Callable) Kind() Kind   { return KindCallable }
func (Callable) Truthy() bool { return true }
func (Callable) value()       {}

// NewCallable creates an immediate callable.
func NewCallable(name string, fn func(args []Value) (Value, error)) Callable {
	return Callable{Name: name, fn: fn}
}

// NewSuspendingCallable creates a suspending callable. Invoking it may
// block on external work; the supplied context governs cancellation.
func NewSuspendingCallable(name string, fn func(ctx context.Context, args []Value) (Value, error)) Callable {
	return Callable{Name: name, ctxFn: fn}
}

// Suspending reports whether invoking the callable may produce a value
// that is not yet available.
func (c Callable) Suspending() bool { return c.ctxFn != nil }

// Invoke calls an immediate callable. It fails on suspending callables,
// which must go through InvokeContext.
func (c Callable) Invoke(args []Value) (Value, error) {
	if c.fn == nil {
		return nil, fmt.Errorf("callable %q is suspending and cannot be invoked directly", c.Name)
	}
	return c.fn(args)
}

// InvokeContext calls the callable under ctx, whether immediate or
// suspending.
func (c Callable) InvokeContext(ctx context.Context, args []Value) (Value, error) {
	if c.ctxFn != nil {
		return c.ctxFn(ctx, args)
	}
	return c.fn(args)
}

// NewString creates a string value.
func NewString(s string) String { return String{Value: s} }

// NewBool creates a boolean value.
func NewBool(b bool) Bool { return Bool{Value: b} }

// NewArray creates an array value.
func NewArray(items []Value) Array { return Array{Items: items} }

// NewMapping creates a mapping value.
func NewMapping(entries map[string]Value) Mapping { return Mapping{Entries: entries} }

package rule

import (
	"context"
	"errors"
	"reflect"

	"mercator-hq/callisto/pkg/mrl/types"
)

// ErrUnresolved is returned by resolvers when a name has no binding on
// the host value. The evaluator turns it into the configured default
// value, or a *errors.SymbolResolutionError when no default is set.
// Custom resolvers should return it (possibly wrapped) for missing names
// rather than inventing their own sentinel.
var ErrUnresolved = errors.New("name is not defined")

// Thunk computes a value that is not yet available. It is only ever run
// from the suspension-capable evaluation path, under the context of the
// evaluation it belongs to.
type Thunk func(ctx context.Context) (types.Value, error)

// Result is the outcome of a resolution: either a ready value or a
// pending thunk. Exactly one of the two is set.
type Result struct {
	Value   types.Value
	Pending Thunk
}

// Ready wraps an immediately available value.
func Ready(v types.Value) Result {
	return Result{Value: v}
}

// Defer wraps a computation whose value is not yet available. Blocking
// evaluation treats it as an error; suspension-capable evaluation awaits
// it.
func Defer(t Thunk) Result {
	return Result{Pending: t}
}

// Resolver maps a name to a value on a host thing. It may return the
// value immediately or hand back a pending thunk, which restricts the
// rule to the suspension-capable evaluation path.
type Resolver func(thing any, name string) (Result, error)

// DefaultResolver performs attribute-then-item lookup: reflected struct
// fields and methods first, then map keys. This mirrors how rules are
// usually written: a bare symbol names either a field on a host object
// or a key in a data mapping.
func DefaultResolver(thing any, name string) (Result, error) {
	res, err := ResolveAttribute(thing, name)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrUnresolved) {
		return Result{}, err
	}
	return ResolveItem(thing, name)
}

// ResolveItem resolves name as a key into a mapping-like thing: a
// types.Mapping or any string-keyed Go map.
func ResolveItem(thing any, name string) (Result, error) {
	switch tv := thing.(type) {
	case types.Mapping:
		if v, ok := tv.Entries[name]; ok {
			return Ready(v), nil
		}
		return Result{}, ErrUnresolved
	case types.Opaque:
		return ResolveItem(tv.Raw, name)
	}

	rv := reflect.ValueOf(thing)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if mv.IsValid() {
			v, err := types.FromAny(mv.Interface())
			if err != nil {
				return Result{}, err
			}
			return Ready(v), nil
		}
	}
	return Result{}, ErrUnresolved
}

// ResolveAttribute resolves name as an attribute of thing: an exported
// struct field or a bound method, found by exact name match or by
// capitalizing the first letter (rules conventionally use lower_case
// names while Go exports are capitalized). Bound methods become
// Callables: suspending when their first parameter is a context.Context.
func ResolveAttribute(thing any, name string) (Result, error) {
	if tv, ok := thing.(types.Opaque); ok {
		return ResolveAttribute(tv.Raw, name)
	}
	if thing == nil {
		return Result{}, ErrUnresolved
	}

	rv := reflect.ValueOf(thing)
	for _, candidate := range attributeCandidates(name) {
		// Bound method on the value (or its pointer receiver set).
		if m := rv.MethodByName(candidate); m.IsValid() {
			callable, err := types.WrapFunc(name, m.Interface())
			if err != nil {
				return Result{}, err
			}
			return Ready(callable), nil
		}

		sv := rv
		if sv.Kind() == reflect.Ptr {
			if sv.IsNil() {
				return Result{}, ErrUnresolved
			}
			sv = sv.Elem()
		}
		if sv.Kind() == reflect.Struct {
			if f := sv.FieldByName(candidate); f.IsValid() && f.CanInterface() {
				v, err := types.FromAny(f.Interface())
				if err != nil {
					return Result{}, err
				}
				return Ready(v), nil
			}
		}
	}
	return Result{}, ErrUnresolved
}

// attributeCandidates lists the Go names an MRL attribute may map to:
// the literal name, then the exported form with the first rune
// capitalized.
func attributeCandidates(name string) []string {
	if name == "" {
		return nil
	}
	first := name[0]
	if first >= 'a' && first <= 'z' {
		return []string{name, string(first-'a'+'A') + name[1:]}
	}
	return []string{name}
}

package types

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"time"
)

var (
	ctxType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType   = reflect.TypeOf((*error)(nil)).Elem()
	valueType = reflect.TypeOf((*Value)(nil)).Elem()
)

// FromAny converts an arbitrary host Go value into an MRL Value.
//
// nil becomes null; booleans, strings and all numeric kinds map to their
// obvious counterparts (floats convert exactly, json.Number parses without
// passing through a float); slices and string-keyed maps convert
// recursively; functions become Callables (suspending when their first
// parameter is a context.Context); anything else (structs in particular)
// is wrapped as an Opaque host object navigable with attribute access.
func FromAny(v any) (Value, error) {
	if v == nil {
		return Null{}, nil
	}
	switch hv := v.(type) {
	case Value:
		return hv, nil
	case bool:
		return Bool{Value: hv}, nil
	case string:
		return String{Value: hv}, nil
	case int:
		return NewNumberFromInt64(int64(hv)), nil
	case int8:
		return NewNumberFromInt64(int64(hv)), nil
	case int16:
		return NewNumberFromInt64(int64(hv)), nil
	case int32:
		return NewNumberFromInt64(int64(hv)), nil
	case int64:
		return NewNumberFromInt64(hv), nil
	case uint:
		return NewNumberFromUint64(uint64(hv)), nil
	case uint8:
		return NewNumberFromUint64(uint64(hv)), nil
	case uint16:
		return NewNumberFromUint64(uint64(hv)), nil
	case uint32:
		return NewNumberFromUint64(uint64(hv)), nil
	case uint64:
		return NewNumberFromUint64(hv), nil
	case float32:
		return NewNumberFromFloat64(float64(hv))
	case float64:
		return NewNumberFromFloat64(hv)
	case *big.Rat:
		return NewNumberFromRat(hv), nil
	case big.Rat:
		return NewNumberFromRat(&hv), nil
	case *big.Int:
		return Number{rat: new(big.Rat).SetInt(hv)}, nil
	case json.Number:
		return ParseNumber(string(hv))
	case time.Time:
		return String{Value: hv.Format(time.RFC3339)}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := FromAny(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return Array{Items: items}, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Opaque{Raw: v}, nil
		}
		entries := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			val, err := FromAny(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			entries[iter.Key().String()] = val
		}
		return Mapping{Entries: entries}, nil

	case reflect.Func:
		return WrapFunc("", v)
	}

	return Opaque{Raw: v}, nil
}

// MustFromAny is FromAny for values known to convert, such as literals in
// tests. It panics on conversion failure.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

// ToAny converts an MRL Value back into a plain host Go value: null to
// nil, numbers to *big.Rat, arrays to []any, mappings to map[string]any.
// Opaque values unwrap to the original host object.
func ToAny(v Value) any {
	switch hv := v.(type) {
	case Null:
		return nil
	case Bool:
		return hv.Value
	case String:
		return hv.Value
	case Number:
		return hv.Rat()
	case Array:
		items := make([]any, len(hv.Items))
		for i, item := range hv.Items {
			items[i] = ToAny(item)
		}
		return items
	case Mapping:
		entries := make(map[string]any, len(hv.Entries))
		for k, item := range hv.Entries {
			entries[k] = ToAny(item)
		}
		return entries
	case Opaque:
		return hv.Raw
	}
	return v
}

// WrapFunc converts a host function or bound method into a Callable.
//
// Two canonical signatures pass through without reflection:
//
//	func(args []Value) (Value, error)                      (immediate)
//	func(ctx context.Context, args []Value) (Value, error) (suspending)
//
// Any other function is adapted reflectively: arguments are converted from
// Values to the parameter types, results back through FromAny, and a
// trailing error return is propagated. A function whose first parameter is
// a context.Context is suspending; all others are immediate.
func WrapFunc(name string, fn any) (Callable, error) {
	switch direct := fn.(type) {
	case func(args []Value) (Value, error):
		return NewCallable(name, direct), nil
	case func(ctx context.Context, args []Value) (Value, error):
		return NewSuspendingCallable(name, direct), nil
	}

	rv := reflect.ValueOf(fn)
	t := rv.Type()
	if t.Kind() != reflect.Func {
		return Callable{}, fmt.Errorf("%T is not a function", fn)
	}
	if t.IsVariadic() {
		return Callable{}, fmt.Errorf("variadic function %q cannot be wrapped", name)
	}
	if t.NumOut() > 2 || (t.NumOut() == 2 && t.Out(1) != errType) {
		return Callable{}, fmt.Errorf("function %q must return (T) or (T, error)", name)
	}

	suspending := t.NumIn() > 0 && t.In(0) == ctxType

	invoke := func(ctx context.Context, args []Value) (Value, error) {
		in := make([]reflect.Value, 0, t.NumIn())
		want := t.NumIn()
		if suspending {
			in = append(in, reflect.ValueOf(ctx))
			want--
		}
		if len(args) != want {
			return nil, fmt.Errorf("callable %q expects %d argument(s), got %d", name, want, len(args))
		}
		for i, arg := range args {
			pv, err := coerceArg(arg, t.In(len(in)))
			if err != nil {
				return nil, fmt.Errorf("callable %q argument %d: %w", name, i, err)
			}
			in = append(in, pv)
		}

		out := rv.Call(in)
		if t.NumOut() == 2 {
			if errv := out[1]; !errv.IsNil() {
				return nil, errv.Interface().(error)
			}
		}
		if t.NumOut() == 0 {
			return Null{}, nil
		}
		return FromAny(out[0].Interface())
	}

	if suspending {
		return NewSuspendingCallable(name, invoke), nil
	}
	return NewCallable(name, func(args []Value) (Value, error) {
		return invoke(context.Background(), args)
	}), nil
}

// coerceArg converts a Value to the reflect value a host parameter
// expects.
func coerceArg(v Value, want reflect.Type) (reflect.Value, error) {
	if want == valueType {
		return reflect.ValueOf(v), nil
	}
	if want.Kind() == reflect.Interface && want.NumMethod() == 0 {
		return reflect.ValueOf(ToAny(v)), nil
	}

	switch want.Kind() {
	case reflect.String:
		if sv, ok := v.(String); ok {
			return reflect.ValueOf(sv.Value).Convert(want), nil
		}
	case reflect.Bool:
		if bv, ok := v.(Bool); ok {
			return reflect.ValueOf(bv.Value).Convert(want), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if nv, ok := v.(Number); ok {
			i, err := nv.Int64()
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(i).Convert(want), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if nv, ok := v.(Number); ok {
			i, err := nv.Int64()
			if err != nil {
				return reflect.Value{}, err
			}
			if i < 0 {
				return reflect.Value{}, fmt.Errorf("negative number for unsigned parameter")
			}
			return reflect.ValueOf(uint64(i)).Convert(want), nil
		}
	case reflect.Float32, reflect.Float64:
		if nv, ok := v.(Number); ok {
			return reflect.ValueOf(nv.Float64()).Convert(want), nil
		}
	case reflect.Ptr:
		if want == reflect.TypeOf((*big.Rat)(nil)) {
			if nv, ok := v.(Number); ok {
				return reflect.ValueOf(nv.Rat()), nil
			}
		}
	}

	// Opaque host objects pass through when assignable.
	if ov, ok := v.(Opaque); ok {
		raw := reflect.ValueOf(ov.Raw)
		if raw.IsValid() && raw.Type().AssignableTo(want) {
			return raw, nil
		}
	}

	return reflect.Value{}, fmt.Errorf("cannot convert %s value to %s", v.Kind(), want)
}

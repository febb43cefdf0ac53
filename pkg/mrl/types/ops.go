package types

import (
	"math/big"
	"reflect"
	"strings"

	rerrors "mercator-hq/callisto/pkg/mrl/errors"
)

// Operator semantics for the MRL value model. These are pure functions:
// they hold no state and are exercised by, not owned by, the evaluator.
//
// Legal kind pairs per operator:
//
//	+            number+number, string+string (concat), array+array (concat)
//	- * / // %   number only, exact decimal arithmetic
//	< <= > >=    number/number, string/string
//	== !=        same kind, or either side null
//	in           string in string (substring), any in array (membership),
//	             string in mapping (key membership)
//
// Anything else is a *errors.TypeError.

// Add evaluates l + r: numeric addition or string/array concatenation.
func Add(l, r Value) (Value, error) {
	switch lv := l.(type) {
	case Number:
		if rv, ok := r.(Number); ok {
			return Number{rat: new(big.Rat).Add(lv.rat, rv.rat)}, nil
		}
	case String:
		if rv, ok := r.(String); ok {
			return String{Value: lv.Value + rv.Value}, nil
		}
	case Array:
		if rv, ok := r.(Array); ok {
			items := make([]Value, 0, len(lv.Items)+len(rv.Items))
			items = append(items, lv.Items...)
			items = append(items, rv.Items...)
			return Array{Items: items}, nil
		}
	}
	return nil, typeError("+", l, r)
}

// Subtract evaluates l - r over numbers.
func Subtract(l, r Value) (Value, error) {
	lv, rv, err := bothNumbers("-", l, r)
	if err != nil {
		return nil, err
	}
	return Number{rat: new(big.Rat).Sub(lv.rat, rv.rat)}, nil
}

// Multiply evaluates l * r over numbers.
func Multiply(l, r Value) (Value, error) {
	lv, rv, err := bothNumbers("*", l, r)
	if err != nil {
		return nil, err
	}
	return Number{rat: new(big.Rat).Mul(lv.rat, rv.rat)}, nil
}

// Divide evaluates l / r over numbers with exact rational division.
func Divide(l, r Value) (Value, error) {
	lv, rv, err := bothNumbers("/", l, r)
	if err != nil {
		return nil, err
	}
	if rv.rat.Sign() == 0 {
		return nil, &rerrors.EvaluationError{Message: "division by zero"}
	}
	return Number{rat: new(big.Rat).Quo(lv.rat, rv.rat)}, nil
}

// FloorDivide evaluates l // r: the floor of the exact quotient.
func FloorDivide(l, r Value) (Value, error) {
	lv, rv, err := bothNumbers("//", l, r)
	if err != nil {
		return nil, err
	}
	if rv.rat.Sign() == 0 {
		return nil, &rerrors.EvaluationError{Message: "division by zero"}
	}
	q := new(big.Rat).Quo(lv.rat, rv.rat)
	return Number{rat: new(big.Rat).SetInt(floorRat(q))}, nil
}

// Modulo evaluates l % r with the sign of the divisor, so that
// l == r*(l//r) + l%r always holds.
func Modulo(l, r Value) (Value, error) {
	lv, rv, err := bothNumbers("%", l, r)
	if err != nil {
		return nil, err
	}
	if rv.rat.Sign() == 0 {
		return nil, &rerrors.EvaluationError{Message: "modulo by zero"}
	}
	q := new(big.Rat).Quo(lv.rat, rv.rat)
	whole := new(big.Rat).SetInt(floorRat(q))
	rem := new(big.Rat).Sub(lv.rat, new(big.Rat).Mul(rv.rat, whole))
	return Number{rat: rem}, nil
}

// Negate evaluates unary minus over a number.
func Negate(v Value) (Value, error) {
	nv, ok := v.(Number)
	if !ok {
		return nil, &rerrors.TypeError{Op: "-", Left: string(v.Kind())}
	}
	return Number{rat: new(big.Rat).Neg(nv.rat)}, nil
}

// Not evaluates logical negation. Defined for every kind via truthiness.
func Not(v Value) Value {
	return Bool{Value: !v.Truthy()}
}

// Equals evaluates l == r. Values of different kinds cannot be compared
// unless one side is null: null equals only null.
func Equals(l, r Value) (bool, error) {
	if l.Kind() == KindNull || r.Kind() == KindNull {
		return l.Kind() == KindNull && r.Kind() == KindNull, nil
	}
	if l.Kind() != r.Kind() {
		return false, typeError("==", l, r)
	}
	if l.Kind() == KindCallable {
		return false, typeError("==", l, r)
	}
	return looseEqual(l, r), nil
}

// Order evaluates an ordering comparison: op is one of < <= > >=.
// Ordering is defined for number/number and string/string.
func Order(op string, l, r Value) (bool, error) {
	var cmp int
	switch lv := l.(type) {
	case Number:
		rv, ok := r.(Number)
		if !ok {
			return false, typeError(op, l, r)
		}
		cmp = lv.Cmp(rv)
	case String:
		rv, ok := r.(String)
		if !ok {
			return false, typeError(op, l, r)
		}
		switch {
		case lv.Value < rv.Value:
			cmp = -1
		case lv.Value > rv.Value:
			cmp = 1
		}
	default:
		return false, typeError(op, l, r)
	}

	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, typeError(op, l, r)
}

// Contains evaluates member in container: substring test for strings,
// membership for arrays, key membership for mappings.
func Contains(member, container Value) (bool, error) {
	switch cv := container.(type) {
	case String:
		mv, ok := member.(String)
		if !ok {
			return false, typeError("in", member, container)
		}
		return strings.Contains(cv.Value, mv.Value), nil
	case Array:
		for _, item := range cv.Items {
			if looseEqual(member, item) {
				return true, nil
			}
		}
		return false, nil
	case Mapping:
		mv, ok := member.(String)
		if !ok {
			return false, typeError("in", member, container)
		}
		_, present := cv.Entries[mv.Value]
		return present, nil
	}
	return false, typeError("in", member, container)
}

// looseEqual compares two values without raising kind errors; mismatched
// kinds are simply unequal. Used for membership scans over heterogeneous
// arrays and for nested structure comparison.
func looseEqual(l, r Value) bool {
	if l.Kind() != r.Kind() {
		return false
	}
	switch lv := l.(type) {
	case Null:
		return true
	case Bool:
		return lv.Value == r.(Bool).Value
	case Number:
		return lv.Cmp(r.(Number)) == 0
	case String:
		return lv.Value == r.(String).Value
	case Array:
		rv := r.(Array)
		if len(lv.Items) != len(rv.Items) {
			return false
		}
		for i := range lv.Items {
			if !looseEqual(lv.Items[i], rv.Items[i]) {
				return false
			}
		}
		return true
	case Mapping:
		rv := r.(Mapping)
		if len(lv.Entries) != len(rv.Entries) {
			return false
		}
		for k, v := range lv.Entries {
			ov, ok := rv.Entries[k]
			if !ok || !looseEqual(v, ov) {
				return false
			}
		}
		return true
	case Opaque:
		return reflect.DeepEqual(lv.Raw, r.(Opaque).Raw)
	}
	return false
}

// floorRat returns the largest integer not greater than r.
func floorRat(r *big.Rat) *big.Int {
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(r.Num(), r.Denom(), rem)
	if rem.Sign() != 0 && r.Sign() < 0 {
		quo.Sub(quo, big.NewInt(1))
	}
	return quo
}

// bothNumbers narrows both operands to Number or fails with a TypeError.
func bothNumbers(op string, l, r Value) (Number, Number, error) {
	lv, ok := l.(Number)
	if !ok {
		return Number{}, Number{}, typeError(op, l, r)
	}
	rv, ok := r.(Number)
	if !ok {
		return Number{}, Number{}, typeError(op, l, r)
	}
	return lv, rv, nil
}

func typeError(op string, l, r Value) error {
	return &rerrors.TypeError{Op: op, Left: string(l.Kind()), Right: string(r.Kind())}
}

package types

import (
	"errors"
	"testing"

	rerrors "mercator-hq/callisto/pkg/mrl/errors"
)

func num(t *testing.T, text string) Number {
	t.Helper()
	n, err := ParseNumber(text)
	if err != nil {
		t.Fatalf("ParseNumber(%q): %v", text, err)
	}
	return n
}

// TestAdd tests addition and concatenation across the legal kind pairs.
func TestAdd(t *testing.T) {
	t.Run("numbers", func(t *testing.T) {
		got, err := Add(num(t, "1.5"), num(t, "2.5"))
		if err != nil {
			t.Fatal(err)
		}
		if got.(Number).String() != "4" {
			t.Errorf("1.5 + 2.5 = %v, want 4", got)
		}
	})

	t.Run("strings concatenate", func(t *testing.T) {
		got, err := Add(NewString("foo"), NewString("bar"))
		if err != nil {
			t.Fatal(err)
		}
		if got.(String).Value != "foobar" {
			t.Errorf(`"foo" + "bar" = %v, want "foobar"`, got)
		}
	})

	t.Run("arrays concatenate", func(t *testing.T) {
		l := NewArray([]Value{NewNumberFromInt64(1)})
		r := NewArray([]Value{NewNumberFromInt64(2), NewNumberFromInt64(3)})
		got, err := Add(l, r)
		if err != nil {
			t.Fatal(err)
		}
		arr := got.(Array)
		if len(arr.Items) != 3 {
			t.Fatalf("concat length = %d, want 3", len(arr.Items))
		}
		if arr.Items[2].(Number).String() != "3" {
			t.Errorf("concat[2] = %v, want 3", arr.Items[2])
		}
	})

	t.Run("mixed kinds fail", func(t *testing.T) {
		_, err := Add(NewString("a"), NewNumberFromInt64(1))
		var terr *rerrors.TypeError
		if !errors.As(err, &terr) {
			t.Fatalf("error = %T, want *TypeError", err)
		}
		if terr.Op != "+" || terr.Left != "string" || terr.Right != "number" {
			t.Errorf("TypeError = %+v, want op + string/number", terr)
		}
	})
}

// TestFloorDivideModulo tests floor division and modulo, including the
// sign-of-divisor convention for negative operands.
func TestFloorDivideModulo(t *testing.T) {
	tests := []struct {
		name    string
		l, r    string
		wantDiv string
		wantMod string
	}{
		{name: "positive", l: "7", r: "3", wantDiv: "2", wantMod: "1"},
		{name: "negative dividend", l: "-7", r: "3", wantDiv: "-3", wantMod: "2"},
		{name: "negative divisor", l: "7", r: "-3", wantDiv: "-3", wantMod: "-2"},
		{name: "both negative", l: "-7", r: "-3", wantDiv: "2", wantMod: "-1"},
		{name: "exact", l: "6", r: "3", wantDiv: "2", wantMod: "0"},
		{name: "fractional operands", l: "7.5", r: "2", wantDiv: "3", wantMod: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, r := num(t, tt.l), num(t, tt.r)

			div, err := FloorDivide(l, r)
			if err != nil {
				t.Fatal(err)
			}
			if got := div.(Number).String(); got != tt.wantDiv {
				t.Errorf("%s // %s = %s, want %s", tt.l, tt.r, got, tt.wantDiv)
			}

			mod, err := Modulo(l, r)
			if err != nil {
				t.Fatal(err)
			}
			if got := mod.(Number).String(); got != tt.wantMod {
				t.Errorf("%s %% %s = %s, want %s", tt.l, tt.r, got, tt.wantMod)
			}
		})
	}
}

// TestDivisionByZero tests that every division flavor rejects a zero
// divisor with an evaluation error rather than a panic.
func TestDivisionByZero(t *testing.T) {
	l, zero := NewNumberFromInt64(1), NewNumberFromInt64(0)

	ops := map[string]func(l, r Value) (Value, error){
		"/":  Divide,
		"//": FloorDivide,
		"%":  Modulo,
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			_, err := op(l, zero)
			var eerr *rerrors.EvaluationError
			if !errors.As(err, &eerr) {
				t.Fatalf("error = %T, want *EvaluationError", err)
			}
		})
	}
}

// TestEquals tests equality semantics: same-kind comparison, the null
// special case, and kind errors elsewhere.
func TestEquals(t *testing.T) {
	tests := []struct {
		name    string
		l, r    Value
		want    bool
		wantErr bool
	}{
		{name: "equal numbers", l: NewNumberFromInt64(3), r: NewNumberFromInt64(3), want: true},
		{name: "unequal numbers", l: NewNumberFromInt64(3), r: NewNumberFromInt64(4), want: false},
		{name: "int equals decimal", l: NewNumberFromInt64(1), r: mustParse("1.0"), want: true},
		{name: "equal strings", l: NewString("a"), r: NewString("a"), want: true},
		{name: "null equals null", l: Null{}, r: Null{}, want: true},
		{name: "null against number", l: Null{}, r: NewNumberFromInt64(0), want: false},
		{name: "number against null", l: NewString(""), r: Null{}, want: false},
		{name: "string against number errors", l: NewString("1"), r: NewNumberFromInt64(1), wantErr: true},
		{name: "bool against number errors", l: NewBool(true), r: NewNumberFromInt64(1), wantErr: true},
		{
			name: "equal arrays",
			l:    NewArray([]Value{NewNumberFromInt64(1), NewString("x")}),
			r:    NewArray([]Value{NewNumberFromInt64(1), NewString("x")}),
			want: true,
		},
		{
			name: "equal mappings",
			l:    NewMapping(map[string]Value{"k": NewBool(true)}),
			r:    NewMapping(map[string]Value{"k": NewBool(true)}),
			want: true,
		},
		{
			name:    "callables error",
			l:       NewCallable("f", func([]Value) (Value, error) { return Null{}, nil }),
			r:       NewCallable("f", func([]Value) (Value, error) { return Null{}, nil }),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Equals(tt.l, tt.r)
			if tt.wantErr {
				var terr *rerrors.TypeError
				if !errors.As(err, &terr) {
					t.Fatalf("error = %T, want *TypeError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Equals = %v, want %v", got, tt.want)
			}
		})
	}
}

func mustParse(text string) Number {
	n, err := ParseNumber(text)
	if err != nil {
		panic(err)
	}
	return n
}

// TestOrder tests ordering comparisons over numbers and strings.
func TestOrder(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		l, r    Value
		want    bool
		wantErr bool
	}{
		{name: "number lt", op: "<", l: NewNumberFromInt64(1), r: NewNumberFromInt64(2), want: true},
		{name: "number ge equal", op: ">=", l: NewNumberFromInt64(2), r: NewNumberFromInt64(2), want: true},
		{name: "decimal gt", op: ">", l: mustParse("0.3"), r: mustParse("0.2"), want: true},
		{name: "string le", op: "<=", l: NewString("abc"), r: NewString("abd"), want: true},
		{name: "string gt", op: ">", l: NewString("b"), r: NewString("a"), want: true},
		{name: "string against number", op: "<", l: NewString("1"), r: NewNumberFromInt64(2), wantErr: true},
		{name: "booleans not ordered", op: "<", l: NewBool(false), r: NewBool(true), wantErr: true},
		{name: "arrays not ordered", op: "<", l: NewArray(nil), r: NewArray(nil), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Order(tt.op, tt.l, tt.r)
			if tt.wantErr {
				var terr *rerrors.TypeError
				if !errors.As(err, &terr) {
					t.Fatalf("error = %T, want *TypeError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Order(%q) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

// TestContains tests membership across strings, arrays and mappings.
func TestContains(t *testing.T) {
	arr := NewArray([]Value{NewNumberFromInt64(1), NewString("two"), Null{}})
	m := NewMapping(map[string]Value{"key": NewNumberFromInt64(1)})

	tests := []struct {
		name      string
		member    Value
		container Value
		want      bool
		wantErr   bool
	}{
		{name: "substring hit", member: NewString("ell"), container: NewString("hello"), want: true},
		{name: "substring miss", member: NewString("xyz"), container: NewString("hello"), want: false},
		{name: "empty substring", member: NewString(""), container: NewString("hello"), want: true},
		{name: "array member number", member: NewNumberFromInt64(1), container: arr, want: true},
		{name: "array member string", member: NewString("two"), container: arr, want: true},
		{name: "array member null", member: Null{}, container: arr, want: true},
		{name: "array miss", member: NewString("three"), container: arr, want: false},
		{name: "mixed kind miss is not an error", member: NewBool(true), container: arr, want: false},
		{name: "mapping key hit", member: NewString("key"), container: m, want: true},
		{name: "mapping key miss", member: NewString("nope"), container: m, want: false},
		{name: "non-string in mapping errors", member: NewNumberFromInt64(1), container: m, wantErr: true},
		{name: "non-string in string errors", member: NewNumberFromInt64(1), container: NewString("1"), wantErr: true},
		{name: "number container errors", member: NewNumberFromInt64(1), container: NewNumberFromInt64(12), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Contains(tt.member, tt.container)
			if tt.wantErr {
				var terr *rerrors.TypeError
				if !errors.As(err, &terr) {
					t.Fatalf("error = %T, want *TypeError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Contains = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestNegateNot tests the unary operators.
func TestNegateNot(t *testing.T) {
	neg, err := Negate(mustParse("1.5"))
	if err != nil {
		t.Fatal(err)
	}
	if neg.(Number).String() != "-1.5" {
		t.Errorf("-(1.5) = %v, want -1.5", neg)
	}

	if _, err := Negate(NewString("x")); err == nil {
		t.Error("Negate of string succeeded, want TypeError")
	}

	if got := Not(NewString("")); !got.(Bool).Value {
		t.Error(`not "" = false, want true`)
	}
	if got := Not(NewNumberFromInt64(5)); got.(Bool).Value {
		t.Error("not 5 = true, want false")
	}
}

// TestTruthy tests truthiness across kinds.
func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{name: "null", v: Null{}, want: false},
		{name: "false", v: NewBool(false), want: false},
		{name: "true", v: NewBool(true), want: true},
		{name: "empty string", v: NewString(""), want: false},
		{name: "string", v: NewString("x"), want: true},
		{name: "empty array", v: NewArray(nil), want: false},
		{name: "array", v: NewArray([]Value{Null{}}), want: true},
		{name: "empty mapping", v: NewMapping(nil), want: false},
		{name: "mapping", v: NewMapping(map[string]Value{"k": Null{}}), want: true},
		{name: "opaque nil", v: Opaque{}, want: false},
		{name: "opaque", v: Opaque{Raw: struct{}{}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

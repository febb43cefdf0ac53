package types

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"
)

// TestFromAny tests host-to-MRL conversion across the supported kinds.
func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{name: "nil", in: nil, want: KindNull},
		{name: "bool", in: true, want: KindBool},
		{name: "string", in: "hi", want: KindString},
		{name: "int", in: 42, want: KindNumber},
		{name: "int64", in: int64(-1), want: KindNumber},
		{name: "uint64", in: uint64(1 << 63), want: KindNumber},
		{name: "float64", in: 2.5, want: KindNumber},
		{name: "big rat", in: big.NewRat(1, 3), want: KindNumber},
		{name: "json number", in: json.Number("0.1"), want: KindNumber},
		{name: "time", in: time.Now(), want: KindString},
		{name: "slice", in: []int{1, 2, 3}, want: KindArray},
		{name: "string map", in: map[string]any{"k": 1}, want: KindMapping},
		{name: "int keyed map", in: map[int]string{1: "x"}, want: KindOpaque},
		{name: "struct", in: struct{ X int }{X: 1}, want: KindOpaque},
		{name: "func", in: func() int { return 1 }, want: KindCallable},
		{name: "value passthrough", in: NewString("already"), want: KindString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromAny(tt.in)
			if err != nil {
				t.Fatalf("FromAny(%v) error = %v", tt.in, err)
			}
			if v.Kind() != tt.want {
				t.Errorf("FromAny(%v).Kind() = %s, want %s", tt.in, v.Kind(), tt.want)
			}
		})
	}
}

// TestFromAny_ExactFloat tests that float conversion keeps the exact
// binary value rather than rounding through text.
func TestFromAny_ExactFloat(t *testing.T) {
	v, err := FromAny(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.(Number).String(); got != "0.5" {
		t.Errorf("FromAny(0.5) = %s, want 0.5", got)
	}
}

// TestFromAny_JSONNumberExact tests that json.Number parses decimally,
// not through a float.
func TestFromAny_JSONNumberExact(t *testing.T) {
	v, err := FromAny(json.Number("0.1"))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := ParseNumber("0.1")
	if v.(Number).Cmp(want) != 0 {
		t.Errorf("FromAny(json.Number(0.1)) = %v, want exactly 0.1", v)
	}
}

// TestFromAny_NestedStructures tests recursive conversion of slices and
// maps.
func TestFromAny_NestedStructures(t *testing.T) {
	v, err := FromAny(map[string]any{
		"tags": []string{"a", "b"},
		"meta": map[string]any{"n": 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := v.(Mapping)
	tags, ok := m.Entries["tags"].(Array)
	if !ok || len(tags.Items) != 2 {
		t.Fatalf("tags = %#v, want 2-element array", m.Entries["tags"])
	}
	meta, ok := m.Entries["meta"].(Mapping)
	if !ok {
		t.Fatalf("meta = %#v, want mapping", m.Entries["meta"])
	}
	if meta.Entries["n"].(Number).String() != "1" {
		t.Errorf("meta.n = %v, want 1", meta.Entries["n"])
	}
}

// TestToAny tests the reverse conversion.
func TestToAny(t *testing.T) {
	if got := ToAny(Null{}); got != nil {
		t.Errorf("ToAny(null) = %v, want nil", got)
	}
	if got := ToAny(NewString("x")); got != "x" {
		t.Errorf("ToAny(string) = %v, want x", got)
	}
	if got := ToAny(NewBool(true)); got != true {
		t.Errorf("ToAny(bool) = %v, want true", got)
	}
	rat, ok := ToAny(NewNumberFromInt64(3)).(*big.Rat)
	if !ok || rat.Cmp(big.NewRat(3, 1)) != 0 {
		t.Errorf("ToAny(number) = %v, want *big.Rat 3", rat)
	}
	raw := struct{ X int }{X: 9}
	if got := ToAny(Opaque{Raw: raw}); got != raw {
		t.Errorf("ToAny(opaque) = %v, want original host object", got)
	}
}

// TestWrapFunc_Canonical tests pass-through of the canonical callable
// signatures.
func TestWrapFunc_Canonical(t *testing.T) {
	imm, err := WrapFunc("imm", func(args []Value) (Value, error) {
		return NewNumberFromInt64(int64(len(args))), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if imm.Suspending() {
		t.Error("canonical immediate signature wrapped as suspending")
	}
	got, err := imm.Invoke([]Value{Null{}, Null{}})
	if err != nil {
		t.Fatal(err)
	}
	if got.(Number).String() != "2" {
		t.Errorf("imm(2 args) = %v, want 2", got)
	}

	susp, err := WrapFunc("susp", func(ctx context.Context, args []Value) (Value, error) {
		return NewString("done"), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !susp.Suspending() {
		t.Error("canonical context signature wrapped as immediate")
	}
	if _, err := susp.Invoke(nil); err == nil {
		t.Error("Invoke of suspending callable succeeded, want error")
	}
	got, err = susp.InvokeContext(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.(String).Value != "done" {
		t.Errorf("susp() = %v, want done", got)
	}
}

// TestWrapFunc_Reflective tests reflective adaptation of plain host
// functions.
func TestWrapFunc_Reflective(t *testing.T) {
	t.Run("typed arguments and result", func(t *testing.T) {
		c, err := WrapFunc("mul", func(a, b int) int { return a * b })
		if err != nil {
			t.Fatal(err)
		}
		if c.Suspending() {
			t.Error("plain function wrapped as suspending")
		}
		got, err := c.Invoke([]Value{NewNumberFromInt64(4), NewNumberFromInt64(2)})
		if err != nil {
			t.Fatal(err)
		}
		if got.(Number).String() != "8" {
			t.Errorf("mul(4, 2) = %v, want 8", got)
		}
	})

	t.Run("context parameter makes it suspending", func(t *testing.T) {
		c, err := WrapFunc("fetch", func(ctx context.Context, key string) (string, error) {
			return "v:" + key, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if !c.Suspending() {
			t.Error("context-taking function wrapped as immediate")
		}
		got, err := c.InvokeContext(context.Background(), []Value{NewString("k")})
		if err != nil {
			t.Fatal(err)
		}
		if got.(String).Value != "v:k" {
			t.Errorf("fetch(k) = %v, want v:k", got)
		}
	})

	t.Run("error return propagates", func(t *testing.T) {
		c, err := WrapFunc("boom", func() (int, error) {
			return 0, context.DeadlineExceeded
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Invoke(nil); err != context.DeadlineExceeded {
			t.Errorf("error = %v, want DeadlineExceeded", err)
		}
	})

	t.Run("arity mismatch", func(t *testing.T) {
		c, err := WrapFunc("one", func(a int) int { return a })
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Invoke(nil); err == nil {
			t.Error("call with missing argument succeeded, want error")
		}
	})

	t.Run("variadic rejected", func(t *testing.T) {
		if _, err := WrapFunc("v", func(xs ...int) int { return 0 }); err == nil {
			t.Error("variadic function wrapped, want error")
		}
	})

	t.Run("bad return shape rejected", func(t *testing.T) {
		if _, err := WrapFunc("bad", func() (int, int) { return 0, 0 }); err == nil {
			t.Error("two non-error results wrapped, want error")
		}
	})

	t.Run("not a function", func(t *testing.T) {
		if _, err := WrapFunc("n", 42); err == nil {
			t.Error("non-function wrapped, want error")
		}
	})
}

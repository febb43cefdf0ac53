package rule

import (
	"errors"
	"testing"

	rerrors "mercator-hq/callisto/pkg/mrl/errors"
	"mercator-hq/callisto/pkg/mrl/types"
)

func mustEval(t *testing.T, text string, thing any) types.Value {
	t.Helper()
	r, err := Compile(text, nil)
	if err != nil {
		t.Fatalf("Compile(%q): %v", text, err)
	}
	v, err := r.Evaluate(thing)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", text, err)
	}
	return v
}

func mustMatch(t *testing.T, text string, thing any) bool {
	t.Helper()
	r, err := Compile(text, nil)
	if err != nil {
		t.Fatalf("Compile(%q): %v", text, err)
	}
	ok, err := r.Matches(thing)
	if err != nil {
		t.Fatalf("Matches(%q): %v", text, err)
	}
	return ok
}

// TestEvaluate_Literals tests evaluation of constant expressions.
func TestEvaluate_Literals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want any
	}{
		{name: "integer arithmetic", text: "1 + 2 * 3", want: "7"},
		{name: "exact decimals", text: "0.1 + 0.2 == 0.3", want: true},
		{name: "floor division", text: "-7 // 3", want: "-3"},
		{name: "modulo sign of divisor", text: "7 % -3", want: "-2"},
		{name: "string concat", text: `"foo" + "bar"`, want: "foobar"},
		{name: "comparison", text: "2 >= 2", want: true},
		{name: "string ordering", text: `"abc" < "abd"`, want: true},
		{name: "equality", text: "1 == 1.0", want: true},
		{name: "inequality", text: `"a" != "b"`, want: true},
		{name: "null equality", text: "null == null", want: true},
		{name: "null against value", text: "null == 0", want: false},
		{name: "substring", text: `"ell" in "hello"`, want: true},
		{name: "not", text: "not false", want: true},
		{name: "unary minus", text: "-(1 + 2)", want: "-3"},
		{name: "ternary then", text: `true ? "a" : "b"`, want: "a"},
		{name: "ternary else", text: `0 ? "a" : "b"`, want: "b"},
		{name: "string index", text: `"hello"[1]`, want: "e"},
		{name: "negative string index", text: `"hello"[-1]`, want: "o"},
		{name: "string length", text: `"hello".length`, want: "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustEval(t, tt.text, nil)
			switch want := tt.want.(type) {
			case bool:
				bv, ok := got.(types.Bool)
				if !ok || bv.Value != want {
					t.Errorf("%s = %v, want %v", tt.text, got, want)
				}
			case string:
				switch gv := got.(type) {
				case types.Number:
					if gv.String() != want {
						t.Errorf("%s = %s, want %s", tt.text, gv, want)
					}
				case types.String:
					if gv.Value != want {
						t.Errorf("%s = %q, want %q", tt.text, gv.Value, want)
					}
				default:
					t.Errorf("%s = %#v, want %v", tt.text, got, want)
				}
			}
		})
	}
}

// TestEvaluate_SymbolResolution tests symbol lookup against maps and
// structs through the default resolver.
func TestEvaluate_SymbolResolution(t *testing.T) {
	t.Run("map key", func(t *testing.T) {
		if !mustMatch(t, "age >= 18", map[string]any{"age": 21}) {
			t.Error("age >= 18 did not match for age 21")
		}
	})

	t.Run("struct field", func(t *testing.T) {
		thing := struct {
			Age  int
			Name string
		}{Age: 30, Name: "sam"}
		if !mustMatch(t, `age == 30 and name == "sam"`, thing) {
			t.Error("struct fields did not resolve")
		}
	})

	t.Run("nested mapping attribute", func(t *testing.T) {
		thing := map[string]any{
			"request": map[string]any{"model": "m-1", "tokens": 120},
		}
		if !mustMatch(t, `request.model == "m-1" and request.tokens < 200`, thing) {
			t.Error("nested mapping attributes did not resolve")
		}
	})

	t.Run("nested subscript", func(t *testing.T) {
		thing := map[string]any{
			"request": map[string]any{"model": "m-1"},
		}
		if !mustMatch(t, `request["model"] == "m-1"`, thing) {
			t.Error("mapping subscript did not resolve")
		}
	})

	t.Run("missing symbol", func(t *testing.T) {
		r := MustCompile("missing_symbol > 0", nil)
		_, err := r.Evaluate(map[string]any{"age": 5})
		var serr *rerrors.SymbolResolutionError
		if !errors.As(err, &serr) {
			t.Fatalf("error = %T, want *SymbolResolutionError", err)
		}
		if serr.Symbol != "missing_symbol" {
			t.Errorf("Symbol = %q, want %q", serr.Symbol, "missing_symbol")
		}
		if serr.Rule != "missing_symbol > 0" {
			t.Errorf("Rule = %q, want the rule text", serr.Rule)
		}
	})

	t.Run("default value", func(t *testing.T) {
		rctx := NewContext(WithDefaultValue(types.Null{}))
		r := MustCompile("missing == null", rctx)
		ok, err := r.Matches(map[string]any{})
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Error("missing symbol did not evaluate to the default value")
		}
	})

	t.Run("missing attribute", func(t *testing.T) {
		r := MustCompile("request.nope", nil)
		_, err := r.Evaluate(map[string]any{"request": map[string]any{}})
		var aerr *rerrors.AttributeResolutionError
		if !errors.As(err, &aerr) {
			t.Fatalf("error = %T, want *AttributeResolutionError", err)
		}
		if aerr.Attribute != "nope" {
			t.Errorf("Attribute = %q, want %q", aerr.Attribute, "nope")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		r := MustCompile(`request["nope"]`, nil)
		_, err := r.Evaluate(map[string]any{"request": map[string]any{}})
		var ierr *rerrors.ItemResolutionError
		if !errors.As(err, &ierr) {
			t.Fatalf("error = %T, want *ItemResolutionError", err)
		}
		if ierr.Key != "nope" {
			t.Errorf("Key = %q, want %q", ierr.Key, "nope")
		}
	})

	t.Run("index out of range", func(t *testing.T) {
		r := MustCompile("items[9]", nil)
		_, err := r.Evaluate(map[string]any{"items": []int{1}})
		var ierr *rerrors.ItemResolutionError
		if !errors.As(err, &ierr) {
			t.Fatalf("error = %T, want *ItemResolutionError", err)
		}
	})
}

// TestEvaluate_CustomResolver tests that a context resolver replaces the
// default lookup entirely.
func TestEvaluate_CustomResolver(t *testing.T) {
	rctx := NewContext(WithResolver(func(thing any, name string) (Result, error) {
		if name == "answer" {
			return Ready(types.NewNumberFromInt64(42)), nil
		}
		return Result{}, ErrUnresolved
	}))
	r := MustCompile("answer == 42", rctx)
	ok, err := r.Matches(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("custom resolver did not supply the symbol")
	}
}

// TestEvaluate_ShortCircuit tests that and/or and the ternary never
// touch the untaken subtree, resolver calls included.
func TestEvaluate_ShortCircuit(t *testing.T) {
	poison := NewContext(WithResolver(func(thing any, name string) (Result, error) {
		switch name {
		case "safe":
			return Ready(types.NewBool(true)), nil
		case "unsafe":
			return Result{}, errors.New("untaken branch was evaluated")
		}
		return Result{}, ErrUnresolved
	}))

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "or skips right", text: "safe or unsafe", want: true},
		{name: "and skips right", text: "not safe and unsafe", want: false},
		{name: "ternary skips else", text: "safe ? true : unsafe", want: true},
		{name: "ternary skips then", text: "not safe ? unsafe : true", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MustCompile(tt.text, poison)
			got, err := r.Matches(nil)
			if err != nil {
				t.Fatalf("Matches(%q): %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

// TestEvaluate_LogicYieldsOperand tests that and/or produce the deciding
// operand value, not a coerced boolean.
func TestEvaluate_LogicYieldsOperand(t *testing.T) {
	v := mustEval(t, `"" or "fallback"`, nil)
	if sv, ok := v.(types.String); !ok || sv.Value != "fallback" {
		t.Errorf(`"" or "fallback" = %#v, want "fallback"`, v)
	}

	v = mustEval(t, `"left" and "right"`, nil)
	if sv, ok := v.(types.String); !ok || sv.Value != "right" {
		t.Errorf(`"left" and "right" = %#v, want "right"`, v)
	}

	v = mustEval(t, "0 and 99", nil)
	if nv, ok := v.(types.Number); !ok || nv.String() != "0" {
		t.Errorf("0 and 99 = %#v, want 0", v)
	}
}

// TestEvaluate_Comprehension tests comprehension iteration, filtering
// and scoping.
func TestEvaluate_Comprehension(t *testing.T) {
	thing := map[string]any{"items": []int{1, 2, 3, 4, 5}}

	t.Run("filter keeps matching elements in order", func(t *testing.T) {
		v := mustEval(t, "[x for x in items if x > 2]", thing)
		arr, ok := v.(types.Array)
		if !ok {
			t.Fatalf("result = %#v, want array", v)
		}
		want := []string{"3", "4", "5"}
		if len(arr.Items) != len(want) {
			t.Fatalf("len = %d, want %d", len(arr.Items), len(want))
		}
		for i, w := range want {
			if got := arr.Items[i].(types.Number).String(); got != w {
				t.Errorf("item %d = %s, want %s", i, got, w)
			}
		}
	})

	t.Run("element expression transforms", func(t *testing.T) {
		v := mustEval(t, "[x * 2 for x in items][0]", thing)
		if v.(types.Number).String() != "2" {
			t.Errorf("first doubled element = %v, want 2", v)
		}
	})

	t.Run("loop variable shadows the host", func(t *testing.T) {
		shadow := map[string]any{"x": 100, "items": []int{7}}
		v := mustEval(t, "[x for x in items][0]", shadow)
		if v.(types.Number).String() != "7" {
			t.Errorf("shadowed x = %v, want the loop value 7", v)
		}
	})

	t.Run("host visible after comprehension", func(t *testing.T) {
		shadow := map[string]any{"x": 100, "items": []int{7}}
		v := mustEval(t, "[x for x in items][0] + x", shadow)
		if v.(types.Number).String() != "107" {
			t.Errorf("sum = %v, want 107", v)
		}
	})

	t.Run("non-array iterable fails", func(t *testing.T) {
		r := MustCompile("[x for x in 42]", nil)
		_, err := r.Evaluate(nil)
		var terr *rerrors.TypeError
		if !errors.As(err, &terr) {
			t.Fatalf("error = %T, want *TypeError", err)
		}
	})
}

// TestEvaluate_Calls tests function and bound method invocation.
func TestEvaluate_Calls(t *testing.T) {
	t.Run("resolver-supplied function", func(t *testing.T) {
		thing := map[string]any{
			"multiply": func(a, b int) int { return a * b },
		}
		if !mustMatch(t, "multiply(4, 2) == 8", thing) {
			t.Error("multiply(4, 2) != 8")
		}
	})

	t.Run("bound method", func(t *testing.T) {
		thing := map[string]any{"svc": scoreService{base: 90}}
		if !mustMatch(t, "svc.score() == 90", thing) {
			t.Error("bound method call failed")
		}
	})

	t.Run("arguments evaluate left to right", func(t *testing.T) {
		var order []string
		rctx := NewContext(WithResolver(func(thing any, name string) (Result, error) {
			switch name {
			case "a", "b", "c":
				order = append(order, name)
				return Ready(types.NewNumberFromInt64(1)), nil
			case "f":
				return Ready(types.NewCallable("f", func(args []types.Value) (types.Value, error) {
					return types.NewNumberFromInt64(int64(len(args))), nil
				})), nil
			}
			return Result{}, ErrUnresolved
		}))
		r := MustCompile("f(a, b, c) == 3", rctx)
		ok, err := r.Matches(nil)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Error("f(a, b, c) != 3")
		}
		if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
			t.Errorf("argument order = %v, want [a b c]", order)
		}
	})

	t.Run("calling a non-callable fails", func(t *testing.T) {
		r := MustCompile("age()", nil)
		_, err := r.Evaluate(map[string]any{"age": 5})
		var terr *rerrors.TypeError
		if !errors.As(err, &terr) {
			t.Fatalf("error = %T, want *TypeError", err)
		}
		if terr.Op != "call" {
			t.Errorf("Op = %q, want call", terr.Op)
		}
	})
}

type scoreService struct {
	base int
}

func (s scoreService) Score() int { return s.base }

// TestEvaluate_Regex tests regex matching, capture groups and flags.
func TestEvaluate_Regex(t *testing.T) {
	t.Run("match and groups", func(t *testing.T) {
		thing := map[string]any{"words": "Hello world"}
		v := mustEval(t, `words =~ "(\w+) (\w+)" ? $re_groups[1] : "none"`, thing)
		if sv := v.(types.String); sv.Value != "world" {
			t.Errorf("second group = %q, want world", sv.Value)
		}
	})

	t.Run("failed match clears groups", func(t *testing.T) {
		thing := map[string]any{"words": "Hello world"}
		v := mustEval(t, `words =~ "(\d+)" ? "matched" : $re_groups.length`, thing)
		if nv := v.(types.Number); nv.String() != "0" {
			t.Errorf("groups after failed match = %v, want empty", nv)
		}
	})

	t.Run("negated match", func(t *testing.T) {
		thing := map[string]any{"words": "abc"}
		if !mustMatch(t, `words !~ "\d"`, thing) {
			t.Error(`abc !~ \d did not match`)
		}
	})

	t.Run("search anywhere in the string", func(t *testing.T) {
		thing := map[string]any{"words": "say Hello there"}
		if !mustMatch(t, `words =~ "Hello"`, thing) {
			t.Error("unanchored pattern did not match mid-string")
		}
	})

	t.Run("case-insensitive flag", func(t *testing.T) {
		rctx := NewContext(WithRegexFlags(RegexCaseInsensitive))
		r := MustCompile(`words =~ "hello"`, rctx)
		ok, err := r.Matches(map[string]any{"words": "HELLO"})
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Error("case-insensitive match failed")
		}
	})

	t.Run("invalid pattern", func(t *testing.T) {
		r := MustCompile(`words =~ "("`, nil)
		_, err := r.Evaluate(map[string]any{"words": "x"})
		var rxerr *rerrors.RegexSyntaxError
		if !errors.As(err, &rxerr) {
			t.Fatalf("error = %T, want *RegexSyntaxError", err)
		}
		if rxerr.Pattern != "(" {
			t.Errorf("Pattern = %q, want (", rxerr.Pattern)
		}
	})

	t.Run("non-string operand", func(t *testing.T) {
		r := MustCompile(`age =~ "\d+"`, nil)
		_, err := r.Evaluate(map[string]any{"age": 5})
		var terr *rerrors.TypeError
		if !errors.As(err, &terr) {
			t.Fatalf("error = %T, want *TypeError", err)
		}
	})
}

// TestEvaluate_TypeErrors tests that kind mismatches surface as typed
// errors carrying the rule text.
func TestEvaluate_TypeErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "string plus number", text: `"a" + 1`},
		{name: "bool comparison", text: "true < false"},
		{name: "number in number", text: "1 in 12"},
		{name: "string equality with number", text: `"1" == 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MustCompile(tt.text, nil)
			_, err := r.Evaluate(nil)
			var terr *rerrors.TypeError
			if !errors.As(err, &terr) {
				t.Fatalf("error = %T, want *TypeError", err)
			}
			if terr.Rule != tt.text {
				t.Errorf("Rule = %q, want %q", terr.Rule, tt.text)
			}
		})
	}
}

// TestEvaluate_Builtins tests the $-prefixed builtin references.
func TestEvaluate_Builtins(t *testing.T) {
	t.Run("today has date shape", func(t *testing.T) {
		if !mustMatch(t, `$today =~ "^\d{4}-\d{2}-\d{2}$"`, nil) {
			t.Error("$today does not look like a date")
		}
	})

	t.Run("now has timestamp shape", func(t *testing.T) {
		if !mustMatch(t, `$now =~ "^\d{4}-\d{2}-\d{2}T"`, nil) {
			t.Error("$now does not look like a timestamp")
		}
	})

	t.Run("unknown builtin", func(t *testing.T) {
		r := MustCompile("$bogus", nil)
		_, err := r.Evaluate(nil)
		var serr *rerrors.SymbolResolutionError
		if !errors.As(err, &serr) {
			t.Fatalf("error = %T, want *SymbolResolutionError", err)
		}
		if serr.Symbol != "$bogus" {
			t.Errorf("Symbol = %q, want $bogus", serr.Symbol)
		}
	})
}

// TestRule_Text tests that the rule retains its source text.
func TestRule_Text(t *testing.T) {
	r := MustCompile("a == 1", nil)
	if r.Text() != "a == 1" {
		t.Errorf("Text() = %q, want the source", r.Text())
	}
}

// TestMustCompile_Panics tests the panic contract on invalid text.
func TestMustCompile_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile of invalid text did not panic")
		}
	}()
	MustCompile("a +", nil)
}

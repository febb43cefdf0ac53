package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/mrl/types"
)

// testCommand returns a command with a background context, for calling
// RunE functions directly.
func testCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestLoadThing(t *testing.T) {
	tmpDir := t.TempDir()
	dataFile := filepath.Join(tmpDir, "thing.json")
	if err := os.WriteFile(dataFile, []byte(`{"age": 25}`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		data     string
		dataFile string
		wantErr  bool
		wantNil  bool
	}{
		{name: "inline data", data: `{"age": 25}`},
		{name: "data file", dataFile: dataFile},
		{name: "no data", wantNil: true},
		{name: "both flags", data: `{}`, dataFile: dataFile, wantErr: true},
		{name: "invalid JSON", data: `{bad`, wantErr: true},
		{name: "missing file", dataFile: filepath.Join(tmpDir, "missing.json"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thing, err := loadThing(tt.data, tt.dataFile)
			if tt.wantErr {
				if err == nil {
					t.Fatal("loadThing() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadThing() failed: %v", err)
			}
			if tt.wantNil {
				if thing != nil {
					t.Errorf("loadThing() = %v, want nil", thing)
				}
				return
			}
			m, ok := thing.(map[string]any)
			if !ok {
				t.Fatalf("loadThing() = %T, want map", thing)
			}
			if m["age"] != float64(25) {
				t.Errorf("age = %v, want 25", m["age"])
			}
		})
	}
}

func TestEvalExpression(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		data       string
		format     string
		wantErr    bool
	}{
		{name: "comparison", expression: "age >= 21", data: `{"age": 25}`},
		{name: "pure arithmetic", expression: "(1000 + 24) // 7"},
		{name: "json output", expression: "tags[0]", data: `{"tags": ["a", "b"]}`, format: "json"},
		{name: "syntax error", expression: "age > >", wantErr: true},
		{name: "unresolved symbol", expression: "missing_symbol", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFlags.data = tt.data
			evalFlags.dataFile = ""
			evalFlags.format = tt.format
			if evalFlags.format == "" {
				evalFlags.format = "text"
			}

			err := evalExpression(testCommand(t), []string{tt.expression})
			if tt.wantErr && err == nil {
				t.Error("evalExpression() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("evalExpression() failed: %v", err)
			}
		})
	}
}

func TestRenderValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "null", in: nil, want: nil},
		{name: "bool", in: true, want: true},
		{name: "string", in: "hello", want: "hello"},
		{name: "integer", in: 42, want: int64(42)},
		{name: "fraction", in: 2.5, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderValue(types.MustFromAny(tt.in))
			if got != tt.want {
				t.Errorf("renderValue(%v) = %v (%T), want %v (%T)",
					tt.in, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestRenderValueNested(t *testing.T) {
	v := types.MustFromAny(map[string]any{
		"items": []any{1, "two"},
	})

	got, ok := renderValue(v).(map[string]any)
	if !ok {
		t.Fatalf("renderValue() = %T, want map", renderValue(v))
	}
	items, ok := got["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("items = %v, want 2-element slice", got["items"])
	}
	if items[0] != int64(1) || items[1] != "two" {
		t.Errorf("items = %v, want [1 two]", items)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "null", in: nil, want: "null"},
		{name: "bool", in: false, want: "false"},
		{name: "string", in: "hi", want: "hi"},
		{name: "integer", in: 42, want: "42"},
		{name: "array", in: []any{1, 2}, want: "[1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatValue(types.MustFromAny(tt.in))
			if got != tt.want {
				t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/ruleset"
)

func writeRuleSet(t *testing.T, dir, file, name string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	doc := "name: " + name + "\nrules:\n  - name: adults\n    when: age >= 18\n    action: allow\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestMemory tests the in-memory source.
func TestMemory(t *testing.T) {
	set := &ruleset.RuleSet{Name: "s", Rules: []*ruleset.RuleDef{{Name: "r", When: "true"}}}
	src := NewMemory(set)

	sets, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 1 || sets[0].Name != "s" {
		t.Fatalf("Load = %v, want the stored set", sets)
	}

	src.SetRuleSets(nil)
	sets, err = src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 0 {
		t.Errorf("Load after SetRuleSets(nil) = %v, want empty", sets)
	}

	ctx, cancel := context.WithCancel(context.Background())
	eventCh, err := src.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	if _, ok := <-eventCh; ok {
		t.Error("memory watcher sent an event")
	}
}

// TestFile_LoadSingleFile tests loading one document.
func TestFile_LoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeRuleSet(t, dir, "one.yaml", "one")

	src := NewFile(path, nil)
	sets, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 1 || sets[0].Name != "one" {
		t.Fatalf("Load = %v, want set one", sets)
	}
	if sets[0].SourceFile != path {
		t.Errorf("SourceFile = %q, want %q", sets[0].SourceFile, path)
	}
}

// TestFile_LoadDirectory tests recursive directory loading and the
// skip-broken-files behavior.
func TestFile_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRuleSet(t, dir, "a.yaml", "a")
	writeRuleSet(t, dir, "b.yml", "b")

	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeRuleSet(t, sub, "c.yaml", "c")

	// Non-YAML and broken files must not break the load.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\nrules:\n  - name: r\n    when: \"age >\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFile(dir, nil)
	sets, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 3 {
		t.Fatalf("set count = %d, want 3", len(sets))
	}
}

// TestFile_LoadMissingPath tests the error on a nonexistent path.
func TestFile_LoadMissingPath(t *testing.T) {
	src := NewFile(filepath.Join(t.TempDir(), "nope"), nil)
	if _, err := src.Load(context.Background()); err == nil {
		t.Error("Load of missing path succeeded, want error")
	}
}

// TestFile_WatchEmitsOnChange tests that modifying a watched file
// produces a debounced event.
func TestFile_WatchEmitsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeRuleSet(t, dir, "one.yaml", "one")

	src := NewFile(dir, nil, WithDebounceInterval(10*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	eventCh, err := src.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}

	writeRuleSet(t, dir, "one.yaml", "one-changed")

	select {
	case ev, ok := <-eventCh:
		if !ok {
			t.Fatal("watcher channel closed before delivering an event")
		}
		if ev.Err != nil {
			t.Fatalf("event error: %v", ev.Err)
		}
		if ev.Path != path {
			t.Errorf("event path = %q, want %q", ev.Path, path)
		}
	case <-ctx.Done():
		t.Fatal("no event before timeout")
	}
}

// TestIsRuleSetFile tests the rule set file extension filter.
func TestIsRuleSetFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "a.yaml", want: true},
		{path: "a.YML", want: true},
		{path: "a.json", want: false},
		{path: "a", want: false},
	}
	for _, tt := range tests {
		if got := isRuleSetFile(tt.path); got != tt.want {
			t.Errorf("isRuleSetFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

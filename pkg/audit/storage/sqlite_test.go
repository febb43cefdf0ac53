package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/audit"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	store, err := NewSQLite(&SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLite() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedSQLite(t *testing.T, store *SQLite, n int) []*audit.Record {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Add(-time.Duration(n) * time.Minute)

	records := make([]*audit.Record, 0, n)
	for i := 0; i < n; i++ {
		record := &audit.Record{
			ID:       fmt.Sprintf("rec-%d", i),
			Time:     base.Add(time.Duration(i) * time.Minute),
			RuleSet:  "access-control",
			Rule:     fmt.Sprintf("rule-%d", i%2),
			Outcome:  audit.OutcomeAllow,
			Duration: time.Duration(i) * time.Microsecond,
		}
		if i%3 == 0 {
			record.Outcome = audit.OutcomeDeny
			record.Reason = "blocked"
		}
		if err := store.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
		records = append(records, record)
	}
	return records
}

func TestSQLite_StoreAndQueryRoundTrip(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	when := time.Date(2026, 8, 1, 12, 0, 0, 123456789, time.UTC)
	record := &audit.Record{
		ID:         "rec-1",
		Time:       when,
		RuleSet:    "access-control",
		Rule:       "minors-blocked",
		Expression: "age < 18",
		Outcome:    audit.OutcomeDeny,
		Reason:     "must be an adult",
		Tags:       []string{"minor", "blocked"},
		Thing:      `{"age":15}`,
		Duration:   250 * time.Microsecond,
	}
	if err := store.Store(ctx, record); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	results, err := store.Query(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d records, want 1", len(results))
	}

	got := results[0]
	if got.ID != record.ID {
		t.Errorf("ID = %q, want %q", got.ID, record.ID)
	}
	if !got.Time.Equal(when) {
		t.Errorf("Time = %v, want %v", got.Time, when)
	}
	if got.Expression != record.Expression {
		t.Errorf("Expression = %q, want %q", got.Expression, record.Expression)
	}
	if got.Reason != record.Reason {
		t.Errorf("Reason = %q, want %q", got.Reason, record.Reason)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "minor" || got.Tags[1] != "blocked" {
		t.Errorf("Tags = %v, want [minor blocked]", got.Tags)
	}
	if got.Thing != record.Thing {
		t.Errorf("Thing = %q, want %q", got.Thing, record.Thing)
	}
	if got.Duration != record.Duration {
		t.Errorf("Duration = %v, want %v", got.Duration, record.Duration)
	}
}

func TestSQLite_QueryNewestFirst(t *testing.T) {
	store := newTestSQLite(t)
	seedSQLite(t, store, 5)

	results, err := store.Query(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d records, want 5", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Time.After(results[i-1].Time) {
			t.Errorf("results not sorted newest first at index %d", i)
		}
	}
	if results[0].ID != "rec-4" {
		t.Errorf("newest record = %s, want rec-4", results[0].ID)
	}
}

func TestSQLite_QueryFilters(t *testing.T) {
	store := newTestSQLite(t)
	records := seedSQLite(t, store, 6)
	ctx := context.Background()

	t.Run("by outcome", func(t *testing.T) {
		results, err := store.Query(ctx, &audit.Query{Outcome: audit.OutcomeDeny})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("got %d deny records, want 2", len(results))
		}
	})

	t.Run("by rule", func(t *testing.T) {
		results, err := store.Query(ctx, &audit.Query{RuleSet: "access-control", Rule: "rule-1"})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("got %d records, want 3", len(results))
		}
	})

	t.Run("by time window", func(t *testing.T) {
		cutoff := records[3].Time
		results, err := store.Query(ctx, &audit.Query{StartTime: &cutoff})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("got %d records at or after cutoff, want 3", len(results))
		}
	})
}

func TestSQLite_Pagination(t *testing.T) {
	store := newTestSQLite(t)
	seedSQLite(t, store, 10)
	ctx := context.Background()

	page1, err := store.Query(ctx, &audit.Query{Limit: 4})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	page2, err := store.Query(ctx, &audit.Query{Limit: 4, Offset: 4})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(page1) != 4 || len(page2) != 4 {
		t.Fatalf("page sizes = %d, %d; want 4, 4", len(page1), len(page2))
	}
	if page1[0].ID != "rec-9" {
		t.Errorf("first page starts at %s, want rec-9", page1[0].ID)
	}
	if page2[0].ID != "rec-5" {
		t.Errorf("second page starts at %s, want rec-5", page2[0].ID)
	}

	offsetOnly, err := store.Query(ctx, &audit.Query{Offset: 8})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(offsetOnly) != 2 {
		t.Errorf("offset-only query returned %d records, want 2", len(offsetOnly))
	}
}

func TestSQLite_CountAndDelete(t *testing.T) {
	store := newTestSQLite(t)
	seedSQLite(t, store, 6)
	ctx := context.Background()

	count, err := store.Count(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 6 {
		t.Errorf("Count() = %d, want 6", count)
	}

	deleted, err := store.Delete(ctx, &audit.Query{Outcome: audit.OutcomeDeny})
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Delete() = %d, want 2", deleted)
	}

	count, _ = store.Count(ctx, &audit.Query{})
	if count != 4 {
		t.Errorf("Count() after delete = %d, want 4", count)
	}
}

func TestSQLite_SchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := NewSQLite(&SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLite() failed: %v", err)
	}
	seedSQLite(t, store, 3)
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Reopening an existing database must find the schema in place.
	reopened, err := NewSQLite(&SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLite() on existing database failed: %v", err)
	}
	defer reopened.Close()

	count, err := reopened.Count(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() after reopen = %d, want 3", count)
	}
}

package retention

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/audit/storage"
)

func storeAged(t *testing.T, store *storage.Memory, id string, daysOld int) {
	t.Helper()
	record := &audit.Record{
		ID:      id,
		Time:    time.Now().AddDate(0, 0, -daysOld),
		RuleSet: "access-control",
		Outcome: audit.OutcomeAllow,
	}
	if err := store.Store(context.Background(), record); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
}

func TestPruner_PruneByAge(t *testing.T) {
	store := storage.NewMemory()
	config := DefaultConfig()
	config.RetentionDays = 7

	pruner := NewPruner(store, config)
	ctx := context.Background()

	storeAged(t, store, "old-1", 10)
	storeAged(t, store, "old-2", 8)
	storeAged(t, store, "recent-1", 5)
	storeAged(t, store, "recent-2", 3)

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	remaining, _ := store.Query(ctx, &audit.Query{})
	for _, r := range remaining {
		if r.ID == "old-1" || r.ID == "old-2" {
			t.Errorf("old record %s should have been deleted", r.ID)
		}
	}
}

func TestPruner_RetentionDisabled(t *testing.T) {
	store := storage.NewMemory()
	config := DefaultConfig()
	config.RetentionDays = 0

	pruner := NewPruner(store, config)
	ctx := context.Background()

	storeAged(t, store, "ancient", 1000)

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 when retention disabled", deleted)
	}
	if store.Size() != 1 {
		t.Errorf("record count = %d, want 1", store.Size())
	}
}

func TestPruner_PruneByCount(t *testing.T) {
	tests := []struct {
		name        string
		maxRecords  int64
		existing    int
		wantDeleted int64
	}{
		{"within limit", 10, 5, 0},
		{"at limit", 10, 10, 0},
		{"exceeds by one", 10, 11, 1},
		{"exceeds by many", 10, 25, 15},
		{"unlimited", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			config := DefaultConfig()
			config.RetentionDays = 0
			config.MaxRecords = tt.maxRecords

			pruner := NewPruner(store, config)
			ctx := context.Background()

			now := time.Now()
			for i := 0; i < tt.existing; i++ {
				record := &audit.Record{
					ID:      fmt.Sprintf("rec-%d", i),
					Time:    now.Add(time.Duration(i) * time.Second),
					Outcome: audit.OutcomeAllow,
				}
				if err := store.Store(ctx, record); err != nil {
					t.Fatalf("Store() failed: %v", err)
				}
			}

			deleted, err := pruner.Prune(ctx)
			if err != nil {
				t.Fatalf("Prune() failed: %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("deleted = %d, want %d", deleted, tt.wantDeleted)
			}

			remaining, _ := store.Count(ctx, &audit.Query{})
			if tt.maxRecords > 0 && remaining > tt.maxRecords {
				t.Errorf("remaining %d exceeds max %d", remaining, tt.maxRecords)
			}
		})
	}
}

func TestPruner_CountKeepsNewest(t *testing.T) {
	store := storage.NewMemory()
	config := DefaultConfig()
	config.RetentionDays = 0
	config.MaxRecords = 2

	pruner := NewPruner(store, config)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 5; i++ {
		record := &audit.Record{
			ID:      fmt.Sprintf("rec-%d", i),
			Time:    now.Add(time.Duration(i) * time.Minute),
			Outcome: audit.OutcomeAllow,
		}
		_ = store.Store(ctx, record)
	}

	if _, err := pruner.Prune(ctx); err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	remaining, _ := store.Query(ctx, &audit.Query{})
	if len(remaining) != 2 {
		t.Fatalf("got %d remaining records, want 2", len(remaining))
	}
	if remaining[0].ID != "rec-4" || remaining[1].ID != "rec-3" {
		t.Errorf("remaining = %s, %s; want rec-4, rec-3", remaining[0].ID, remaining[1].ID)
	}
}

func TestPruner_BothAgeAndCount(t *testing.T) {
	store := storage.NewMemory()
	config := DefaultConfig()
	config.RetentionDays = 90
	config.MaxRecords = 8

	pruner := NewPruner(store, config)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		storeAged(t, store, fmt.Sprintf("old-%d", i), 100)
	}
	now := time.Now()
	for i := 0; i < 10; i++ {
		record := &audit.Record{
			ID:      fmt.Sprintf("recent-%d", i),
			Time:    now.Add(time.Duration(i) * time.Second),
			Outcome: audit.OutcomeAllow,
		}
		_ = store.Store(ctx, record)
	}

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	// 5 by age, then 2 by count (10 recent - 8 max).
	if deleted != 7 {
		t.Errorf("deleted = %d, want 7", deleted)
	}
	remaining, _ := store.Count(ctx, &audit.Query{})
	if remaining != 8 {
		t.Errorf("remaining = %d, want 8", remaining)
	}
}

func TestPruner_ArchiveBeforeDelete(t *testing.T) {
	store := storage.NewMemory()
	tmpDir := t.TempDir()

	config := DefaultConfig()
	config.RetentionDays = 7
	config.ArchiveBeforeDelete = true
	config.ArchivePath = tmpDir

	pruner := NewPruner(store, config)
	ctx := context.Background()

	storeAged(t, store, "old-1", 10)
	storeAged(t, store, "old-2", 8)

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "audit-*.json"))
	if err != nil {
		t.Fatalf("failed to list archive files: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("got %d archive files, want 1", len(files))
	}
}

func TestPruner_NoArchiveWhenNothingMatches(t *testing.T) {
	store := storage.NewMemory()
	tmpDir := t.TempDir()

	config := DefaultConfig()
	config.RetentionDays = 7
	config.ArchiveBeforeDelete = true
	config.ArchivePath = tmpDir

	pruner := NewPruner(store, config)

	storeAged(t, store, "recent", 1)

	if _, err := pruner.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(tmpDir, "audit-*.json"))
	if len(files) != 0 {
		t.Errorf("got %d archive files, want 0", len(files))
	}
}

func TestPruner_EmptyStorage(t *testing.T) {
	pruner := NewPruner(storage.NewMemory(), nil)

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

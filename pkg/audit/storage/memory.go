package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/callisto/pkg/audit"
)

// Memory implements audit.Storage with an in-memory map. Intended for
// tests and short-lived tooling.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*audit.Record
}

// NewMemory creates an in-memory storage backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*audit.Record)}
}

// Store persists one record.
func (s *Memory) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

// Query returns matching records, newest first.
func (s *Memory) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*audit.Record
	for _, record := range s.records {
		if query.Matches(record) {
			cp := *record
			results = append(results, &cp)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Time.After(results[j].Time)
	})

	start := query.Offset
	if start > len(results) {
		return nil, nil
	}
	results = results[start:]
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns how many records match.
func (s *Memory) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes matching records.
func (s *Memory) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if query.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close clears the store.
func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*audit.Record)
	return nil
}

// Size returns the number of stored records, for tests.
func (s *Memory) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

package source

import (
	"context"
	"sync"

	"mercator-hq/callisto/pkg/ruleset"
)

// Memory is an in-memory rule set source, for tests and for programs
// that construct their rule sets directly.
type Memory struct {
	mu   sync.RWMutex
	sets []*ruleset.RuleSet
}

// NewMemory creates an in-memory source holding the given sets.
func NewMemory(sets ...*ruleset.RuleSet) *Memory {
	return &Memory{sets: sets}
}

// Load returns a copy of the stored sets.
func (s *Memory) Load(ctx context.Context) ([]*ruleset.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sets := make([]*ruleset.RuleSet, len(s.sets))
	copy(sets, s.sets)
	return sets, nil
}

// Watch returns a channel that never sends events and closes with ctx.
func (s *Memory) Watch(ctx context.Context) (<-chan Event, error) {
	eventCh := make(chan Event)
	go func() {
		<-ctx.Done()
		close(eventCh)
	}()
	return eventCh, nil
}

// SetRuleSets replaces the stored sets.
func (s *Memory) SetRuleSets(sets []*ruleset.RuleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = sets
}

package source

import (
	"context"

	"mercator-hq/callisto/pkg/ruleset"
)

// Source provides rule sets to an engine.
type Source interface {
	// Load loads all rule sets from the source.
	Load(ctx context.Context) ([]*ruleset.RuleSet, error)

	// Watch watches for rule set changes and sends events on the
	// returned channel. The channel is closed when ctx is cancelled.
	Watch(ctx context.Context) (<-chan Event, error)
}

// EventType classifies a rule set change event.
type EventType string

const (
	EventCreated  EventType = "created"
	EventModified EventType = "modified"
	EventDeleted  EventType = "deleted"
)

// Event is one rule set change notification. The engine reacts to any
// event by reloading from the source.
type Event struct {
	// Type is the kind of change.
	Type EventType

	// Path names what changed: a file path or a commit hash.
	Path string

	// Err is set when the watcher itself failed.
	Err error
}

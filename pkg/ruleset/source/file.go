package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/callisto/pkg/ruleset"
)

// File loads rule sets from YAML files on disk and watches them with
// fsnotify. The path may be a single file or a directory; directories
// are loaded recursively, picking up every .yaml and .yml file.
type File struct {
	path   string
	parser *ruleset.Parser
	logger *slog.Logger

	// debounceInterval collapses bursts of file events into one reload.
	debounceInterval time.Duration
}

// FileOption configures a File source.
type FileOption func(*File)

// WithDebounceInterval sets the quiet period after a file event before
// a change notification is emitted. Default 100ms.
func WithDebounceInterval(d time.Duration) FileOption {
	return func(f *File) { f.debounceInterval = d }
}

// WithParser sets the parser used for loaded documents.
func WithParser(p *ruleset.Parser) FileOption {
	return func(f *File) { f.parser = p }
}

// NewFile creates a file-based rule set source.
func NewFile(path string, logger *slog.Logger, opts ...FileOption) *File {
	if logger == nil {
		logger = slog.Default()
	}
	f := &File{
		path:             path,
		parser:           ruleset.NewParser(nil),
		logger:           logger,
		debounceInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load loads all rule sets from the configured path.
func (f *File) Load(ctx context.Context) ([]*ruleset.RuleSet, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", f.path, err)
	}

	var sets []*ruleset.RuleSet
	if info.IsDir() {
		sets, err = f.loadDirectory()
		if err != nil {
			return nil, err
		}
	} else {
		set, err := f.parser.ParseFile(f.path)
		if err != nil {
			return nil, err
		}
		sets = []*ruleset.RuleSet{set}
	}

	f.logger.Info("loaded rule sets from files",
		"path", f.path,
		"set_count", len(sets),
	)
	return sets, nil
}

// loadDirectory loads every rule set file under the directory. Files
// that fail to parse are skipped with a warning so one broken document
// does not take the whole directory down.
func (f *File) loadDirectory() ([]*ruleset.RuleSet, error) {
	var sets []*ruleset.RuleSet

	err := filepath.Walk(f.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isRuleSetFile(path) {
			return nil
		}

		set, err := f.parser.ParseFile(path)
		if err != nil {
			f.logger.Warn("failed to load rule set file, skipping",
				"path", path,
				"error", err,
			)
			return nil
		}
		sets = append(sets, set)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", f.path, err)
	}
	return sets, nil
}

// Watch watches the configured path with fsnotify and emits a debounced
// event per burst of changes. The channel is closed when ctx is
// cancelled.
func (f *File) Watch(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := addWatchPath(watcher, f.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch path %q: %w", f.path, err)
	}

	eventCh := make(chan Event)
	go f.run(ctx, watcher, eventCh)

	f.logger.Info("rule set file watcher started",
		"path", f.path,
		"debounce_ms", f.debounceInterval.Milliseconds(),
	)
	return eventCh, nil
}

// run is the watcher event loop. It holds one pending event and a
// debounce timer; the pending event is emitted once the timer fires
// with no further file activity.
func (f *File) run(ctx context.Context, watcher *fsnotify.Watcher, eventCh chan<- Event) {
	defer close(eventCh)
	defer watcher.Close()

	var (
		mu      sync.Mutex
		pending *Event
		timer   *time.Timer
	)
	fire := make(chan Event, 1)

	arm := func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		pending = &ev
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(f.debounceInterval, func() {
			mu.Lock()
			ev := pending
			pending = nil
			mu.Unlock()
			if ev != nil {
				select {
				case fire <- *ev:
				default:
				}
			}
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !shouldProcess(ev) {
				continue
			}
			f.logger.Debug("rule set file event",
				"path", ev.Name,
				"op", ev.Op.String(),
			)
			arm(Event{Type: eventTypeFor(ev.Op), Path: ev.Name})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Error("rule set file watcher error", "error", err)
			select {
			case eventCh <- Event{Err: err}:
			case <-ctx.Done():
				return
			}

		case ev := <-fire:
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// addWatchPath registers a file or directory tree with the watcher.
func addWatchPath(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(path)
	}
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

// shouldProcess filters out events that cannot change loaded rule sets.
func shouldProcess(ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	return isRuleSetFile(ev.Name)
}

func eventTypeFor(op fsnotify.Op) EventType {
	switch {
	case op&fsnotify.Create != 0:
		return EventCreated
	case op&fsnotify.Remove != 0 || op&fsnotify.Rename != 0:
		return EventDeleted
	}
	return EventModified
}

func isRuleSetFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

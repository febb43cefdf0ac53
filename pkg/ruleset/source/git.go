package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"mercator-hq/callisto/pkg/ruleset"
)

// GitConfig configures a git-backed rule set source.
type GitConfig struct {
	// Repository is the clone URL.
	Repository string

	// Branch to track. Required.
	Branch string

	// Path is the directory inside the repository holding rule set
	// files. Empty means the repository root.
	Path string

	// LocalPath is where the working copy lives. Defaults to a
	// directory under the system temp dir.
	LocalPath string

	// PollInterval is how often the remote is polled for new commits.
	// Default 1 minute.
	PollInterval time.Duration

	// Timeout bounds each clone or pull. Default 30 seconds.
	Timeout time.Duration

	// Username and Token enable HTTP basic auth for private remotes.
	Username string
	Token    string
}

// Git loads rule sets from a git repository, polling the remote for
// changes. Load clones on first use and reads the working copy; Watch
// pulls on an interval and emits an event when HEAD moves.
type Git struct {
	config *GitConfig
	parser *ruleset.Parser
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGit creates a git-backed source.
func NewGit(config *GitConfig, logger *slog.Logger) (*Git, error) {
	if config == nil {
		return nil, fmt.Errorf("git config cannot be nil")
	}
	if config.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if config.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if config.LocalPath == "" {
		config.LocalPath = filepath.Join(os.TempDir(), "callisto-rulesets")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Git{
		config: config,
		parser: ruleset.NewParser(nil),
		logger: logger,
	}, nil
}

// Load ensures the working copy exists and parses the rule set files in
// the configured path.
func (g *Git) Load(ctx context.Context) ([]*ruleset.RuleSet, error) {
	if err := g.ensureClone(ctx); err != nil {
		return nil, err
	}

	dir := filepath.Join(g.config.LocalPath, g.config.Path)
	loader := NewFile(dir, g.logger, WithParser(g.parser))
	sets, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule sets from working copy: %w", err)
	}
	return sets, nil
}

// Watch polls the remote on the configured interval and emits a
// modified event whenever HEAD advances. The channel is closed when ctx
// is cancelled.
func (g *Git) Watch(ctx context.Context) (<-chan Event, error) {
	if err := g.ensureClone(ctx); err != nil {
		return nil, err
	}

	eventCh := make(chan Event)
	go func() {
		defer close(eventCh)
		ticker := time.NewTicker(g.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				moved, head, err := g.pull(ctx)
				if err != nil {
					g.logger.Error("rule set git pull failed", "error", err)
					select {
					case eventCh <- Event{Err: err}:
					case <-ctx.Done():
						return
					}
					continue
				}
				if !moved {
					continue
				}
				g.logger.Info("rule set repository advanced", "head", head)
				select {
				case eventCh <- Event{Type: EventModified, Path: head}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	g.logger.Info("rule set git watcher started",
		"repository", g.config.Repository,
		"branch", g.config.Branch,
		"poll_interval", g.config.PollInterval,
	)
	return eventCh, nil
}

// ensureClone opens the working copy, cloning it first if absent.
func (g *Git) ensureClone(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo != nil {
		return nil
	}

	if _, err := os.Stat(filepath.Join(g.config.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.config.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing working copy: %w", err)
		}
		g.repo = repo
		return nil
	}

	if err := os.MkdirAll(g.config.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create working copy directory: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, g.config.LocalPath, false, &gogit.CloneOptions{
		URL:           g.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil {
		return fmt.Errorf("failed to clone %q: %w", g.config.Repository, err)
	}

	g.repo = repo
	g.logger.Info("cloned rule set repository",
		"repository", g.config.Repository,
		"branch", g.config.Branch,
		"local_path", g.config.LocalPath,
	)
	return nil
}

// pull fetches the tracked branch and reports whether HEAD moved.
func (g *Git) pull(ctx context.Context) (bool, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	before, err := g.repo.Head()
	if err != nil {
		return false, "", fmt.Errorf("failed to read HEAD: %w", err)
	}

	worktree, err := g.repo.Worktree()
	if err != nil {
		return false, "", fmt.Errorf("failed to get worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return false, "", fmt.Errorf("failed to pull: %w", err)
	}

	after, err := g.repo.Head()
	if err != nil {
		return false, "", fmt.Errorf("failed to read HEAD after pull: %w", err)
	}

	head := after.Hash().String()
	return before.Hash() != after.Hash(), head, nil
}

// auth builds transport credentials, or nil for anonymous access.
func (g *Git) auth() *http.BasicAuth {
	if g.config.Token == "" {
		return nil
	}
	username := g.config.Username
	if username == "" {
		// Token-based HTTP auth needs a non-empty username.
		username = "git"
	}
	return &http.BasicAuth{Username: username, Password: g.config.Token}
}

package engine

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// FailMode decides the outcome when an evaluation errors.
type FailMode string

const (
	// FailOpen allows the thing when evaluation fails.
	FailOpen FailMode = "fail_open"

	// FailClosed denies the thing when evaluation fails.
	FailClosed FailMode = "fail_closed"
)

// Config contains engine configuration.
type Config struct {
	// FailMode decides the outcome when an evaluation errors.
	// Default: FailClosed.
	FailMode FailMode

	// EvalTimeout bounds a single evaluation. 0 means no timeout.
	EvalTimeout time.Duration

	// ReloadSchedule is an optional cron expression for periodic
	// reloads, independent of source watching.
	ReloadSchedule string

	// Watch enables reloading when the source reports changes.
	Watch bool

	// MaxRuleSets and MaxRulesPerSet bound what a reload will accept.
	MaxRuleSets    int
	MaxRulesPerSet int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		FailMode:       FailClosed,
		MaxRuleSets:    100,
		MaxRulesPerSet: 200,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.FailMode {
	case FailOpen, FailClosed:
	default:
		return fmt.Errorf("unknown fail mode: %q", c.FailMode)
	}
	if c.EvalTimeout < 0 {
		return fmt.Errorf("eval timeout must not be negative")
	}
	if c.MaxRuleSets <= 0 || c.MaxRulesPerSet <= 0 {
		return fmt.Errorf("rule set limits must be positive")
	}
	if c.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(c.ReloadSchedule); err != nil {
			return fmt.Errorf("invalid reload schedule %q: %w", c.ReloadSchedule, err)
		}
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent
// values. It returns the first problem found.
func Validate(cfg *Config) error {
	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}
	if err := validateAudit(&cfg.Audit); err != nil {
		return err
	}
	if err := validateSource(&cfg.Source); err != nil {
		return err
	}
	if err := validateEngine(&cfg.Engine); err != nil {
		return err
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format: unknown format %q", cfg.Format)
	}
	return nil
}

func validateAudit(cfg *AuditConfig) error {
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("audit.backend: unknown backend %q", cfg.Backend)
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		return fmt.Errorf("audit.sqlite.path: required for sqlite backend")
	}
	if cfg.AsyncBuffer < 0 {
		return fmt.Errorf("audit.async_buffer: must not be negative")
	}
	if cfg.Retention.Days < 0 {
		return fmt.Errorf("audit.retention.days: must not be negative")
	}
	if cfg.Retention.MaxRecords < 0 {
		return fmt.Errorf("audit.retention.max_records: must not be negative")
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("audit.retention.schedule: %w", err)
		}
	}
	return nil
}

func validateSource(cfg *SourceConfig) error {
	switch cfg.Mode {
	case "file":
		if cfg.Path == "" {
			return fmt.Errorf("source.path: required for file mode")
		}
	case "git":
		if cfg.Git.Repository == "" {
			return fmt.Errorf("source.git.repository: required for git mode")
		}
		if cfg.Git.PollInterval <= 0 {
			return fmt.Errorf("source.git.poll_interval: must be positive")
		}
	default:
		return fmt.Errorf("source.mode: unknown mode %q", cfg.Mode)
	}
	return nil
}

func validateEngine(cfg *EngineConfig) error {
	switch cfg.FailMode {
	case "fail_open", "fail_closed":
	default:
		return fmt.Errorf("engine.fail_mode: unknown mode %q", cfg.FailMode)
	}
	if cfg.EvalTimeout < 0 {
		return fmt.Errorf("engine.eval_timeout: must not be negative")
	}
	if cfg.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ReloadSchedule); err != nil {
			return fmt.Errorf("engine.reload_schedule: %w", err)
		}
	}
	return nil
}

package config

import "time"

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields with their default values.
func ApplyDefaults(cfg *Config) {
	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Metrics
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "mercator"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "callisto"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if len(cfg.Metrics.EvalDurationBuckets) == 0 {
		// Rule evaluations are fast; suspension-mode awaits can reach
		// seconds.
		cfg.Metrics.EvalDurationBuckets = []float64{
			0.00001, 0.0001, 0.001, 0.01, 0.1, 0.5, 1.0, 5.0,
		}
	}

	// Audit
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = "data/audit.db"
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = 10
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = 5
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = 5 * time.Second
		cfg.Audit.SQLite.WALMode = true
	}
	if cfg.Audit.AsyncBuffer == 0 {
		cfg.Audit.AsyncBuffer = 1000
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = 5 * time.Second
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = 90
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = "0 3 * * *"
	}
	if cfg.Audit.Retention.ArchivePath == "" {
		cfg.Audit.Retention.ArchivePath = "data/archives/"
	}

	// Source
	if cfg.Source.Mode == "" {
		cfg.Source.Mode = "file"
	}
	if cfg.Source.Path == "" {
		cfg.Source.Path = "rulesets/"
	}
	if cfg.Source.DebounceInterval == 0 {
		cfg.Source.DebounceInterval = 500 * time.Millisecond
	}
	if cfg.Source.Git.Branch == "" {
		cfg.Source.Git.Branch = "main"
	}
	if cfg.Source.Git.PollInterval == 0 {
		cfg.Source.Git.PollInterval = time.Minute
	}
	if cfg.Source.Git.Timeout == 0 {
		cfg.Source.Git.Timeout = 30 * time.Second
	}

	// Engine
	if cfg.Engine.FailMode == "" {
		cfg.Engine.FailMode = "fail_closed"
	}

	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
}

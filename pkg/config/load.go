package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults and
// CALLISTO_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a configuration from raw YAML bytes, applying defaults,
// environment overrides, and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies CALLISTO_SECTION_FIELD environment
// variables over the loaded configuration.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setBool := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if val := os.Getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}

	setString("CALLISTO_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("CALLISTO_LOGGING_FORMAT", &cfg.Logging.Format)

	setBool("CALLISTO_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setString("CALLISTO_METRICS_PATH", &cfg.Metrics.Path)

	setBool("CALLISTO_AUDIT_ENABLED", &cfg.Audit.Enabled)
	setString("CALLISTO_AUDIT_BACKEND", &cfg.Audit.Backend)
	setString("CALLISTO_AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	setBool("CALLISTO_AUDIT_RECORD_THINGS", &cfg.Audit.RecordThings)
	if val := os.Getenv("CALLISTO_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.Days = i
		}
	}

	setString("CALLISTO_SOURCE_MODE", &cfg.Source.Mode)
	setString("CALLISTO_SOURCE_PATH", &cfg.Source.Path)
	setBool("CALLISTO_SOURCE_WATCH", &cfg.Source.Watch)
	setString("CALLISTO_SOURCE_GIT_REPOSITORY", &cfg.Source.Git.Repository)
	setString("CALLISTO_SOURCE_GIT_BRANCH", &cfg.Source.Git.Branch)
	setString("CALLISTO_SOURCE_GIT_USERNAME", &cfg.Source.Git.Username)
	setString("CALLISTO_SOURCE_GIT_TOKEN", &cfg.Source.Git.Token)
	setDuration("CALLISTO_SOURCE_GIT_POLL_INTERVAL", &cfg.Source.Git.PollInterval)

	setString("CALLISTO_ENGINE_FAIL_MODE", &cfg.Engine.FailMode)
	setDuration("CALLISTO_ENGINE_EVAL_TIMEOUT", &cfg.Engine.EvalTimeout)

	setString("CALLISTO_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
}

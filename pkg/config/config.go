package config

import "time"

// Config is the root configuration for Callisto.
type Config struct {
	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`

	// Audit configures evaluation audit recording.
	Audit AuditConfig `yaml:"audit"`

	// Source configures where rule sets are loaded from.
	Source SourceConfig `yaml:"source"`

	// Engine configures rule set evaluation behavior.
	Engine EngineConfig `yaml:"engine"`

	// Server configures the HTTP server exposing metrics and health
	// endpoints in run mode.
	Server ServerConfig `yaml:"server"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	Enabled bool `yaml:"enabled"`

	// Namespace and Subsystem prefix every metric name.
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// Path is the HTTP path for the metrics endpoint.
	Path string `yaml:"path"`

	// EvalDurationBuckets are histogram buckets for evaluation
	// durations, in seconds.
	EvalDurationBuckets []float64 `yaml:"eval_duration_buckets"`
}

// AuditConfig configures audit recording and retention.
type AuditConfig struct {
	// Enabled turns audit recording on.
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend: "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// AsyncBuffer is the recorder's channel buffer size.
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds each storage write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RecordThings includes a JSON rendering of the evaluated value
	// in each record.
	RecordThings bool `yaml:"record_things"`

	// Retention configures record pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite audit backend.
type SQLiteConfig struct {
	Path         string        `yaml:"path"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	WALMode      bool          `yaml:"wal_mode"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures audit record pruning.
type RetentionConfig struct {
	// Days is the retention period. 0 disables age-based pruning.
	Days int `yaml:"days"`

	// MaxRecords caps the record count. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is a cron expression for automatic pruning.
	Schedule string `yaml:"schedule"`

	// ArchiveBeforeDelete writes pruned records to JSON archives.
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the archive directory.
	ArchivePath string `yaml:"archive_path"`
}

// SourceConfig configures where rule sets come from.
type SourceConfig struct {
	// Mode selects the source: "file" or "git".
	Mode string `yaml:"mode"`

	// Path is the rule set file or directory for file mode, and the
	// subdirectory within the repository for git mode.
	Path string `yaml:"path"`

	// Watch enables hot reload on source changes.
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces rapid file change events.
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Git configures the git source.
	Git GitSourceConfig `yaml:"git"`
}

// GitSourceConfig configures the git rule set source.
type GitSourceConfig struct {
	// Repository is the clone URL.
	Repository string `yaml:"repository"`

	// Branch to track. Default: "main".
	Branch string `yaml:"branch"`

	// LocalPath is the clone destination. Defaults to a temp dir.
	LocalPath string `yaml:"local_path"`

	// PollInterval is how often to pull for changes.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds clone and pull operations.
	Timeout time.Duration `yaml:"timeout"`

	// Username and Token authenticate HTTPS access.
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
}

// EngineConfig configures rule set evaluation.
type EngineConfig struct {
	// FailMode decides the outcome when an evaluation errors:
	// "fail_open" allows, "fail_closed" denies.
	FailMode string `yaml:"fail_mode"`

	// EvalTimeout bounds a single evaluation in suspension mode.
	// 0 means no timeout.
	EvalTimeout time.Duration `yaml:"eval_timeout"`

	// ReloadSchedule is an optional cron expression for periodic
	// reloads, independent of source watching.
	ReloadSchedule string `yaml:"reload_schedule"`
}

// ServerConfig configures the HTTP server used in run mode.
type ServerConfig struct {
	// ListenAddress is the host:port to bind.
	ListenAddress string `yaml:"listen_address"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

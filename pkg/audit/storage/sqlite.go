package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mercator-hq/callisto/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLite implements audit.Storage over a SQLite database.
type SQLite struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLite opens (or creates) the database, applies the schema, and
// returns the storage backend.
func NewSQLite(config *SQLiteConfig) (*SQLite, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %q: %w", config.Path, err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLite{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

// initialize applies pragmas and the schema, and verifies the schema
// version.
func (s *SQLite) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}
	return nil
}

// Store persists one record.
func (s *SQLite) Store(ctx context.Context, record *audit.Record) error {
	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records
			(id, time, rule_set, rule, expression, outcome, reason, tags, thing, error, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Time.UnixNano(),
		record.RuleSet,
		record.Rule,
		record.Expression,
		string(record.Outcome),
		record.Reason,
		string(tags),
		record.Thing,
		record.Error,
		record.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to store audit record: %w", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLite) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	where, args := buildWhere(query)

	q := `SELECT id, time, rule_set, rule, expression, outcome, reason, tags, thing, error, duration_ns
		FROM audit_records` + where + ` ORDER BY time DESC`
	if query.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", query.Limit, query.Offset)
	} else if query.Offset > 0 {
		q += fmt.Sprintf(" LIMIT -1 OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Count returns how many records match.
func (s *SQLite) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhere(query)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return count, nil
}

// Delete removes matching records.
func (s *SQLite) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhere(query)

	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_records"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhere turns query filters into a WHERE clause and its arguments.
func buildWhere(query *audit.Query) (string, []any) {
	var conds []string
	var args []any

	if query.StartTime != nil {
		conds = append(conds, "time >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conds = append(conds, "time <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.RuleSet != "" {
		conds = append(conds, "rule_set = ?")
		args = append(args, query.RuleSet)
	}
	if query.Rule != "" {
		conds = append(conds, "rule = ?")
		args = append(args, query.Rule)
	}
	if query.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, string(query.Outcome))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanRecord reads one row into a Record.
func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		record     audit.Record
		timeNs     int64
		outcome    string
		tags       string
		durationNs int64
	)
	err := rows.Scan(
		&record.ID,
		&timeNs,
		&record.RuleSet,
		&record.Rule,
		&record.Expression,
		&outcome,
		&record.Reason,
		&tags,
		&record.Thing,
		&record.Error,
		&durationNs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit record: %w", err)
	}

	record.Time = time.Unix(0, timeNs)
	record.Outcome = audit.Outcome(outcome)
	record.Duration = time.Duration(durationNs)
	if err := json.Unmarshal([]byte(tags), &record.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return &record, nil
}

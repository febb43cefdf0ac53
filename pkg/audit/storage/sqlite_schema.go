package storage

// SchemaVersion is bumped on any incompatible schema change.
const SchemaVersion = 1

// Schema creates the audit tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id          TEXT PRIMARY KEY,
    time        INTEGER NOT NULL,
    rule_set    TEXT NOT NULL DEFAULT '',
    rule        TEXT NOT NULL DEFAULT '',
    expression  TEXT NOT NULL DEFAULT '',
    outcome     TEXT NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    tags        TEXT NOT NULL DEFAULT '[]',
    thing       TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    duration_ns INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_audit_records_time ON audit_records (time);
CREATE INDEX IF NOT EXISTS idx_audit_records_rule ON audit_records (rule_set, rule);
CREATE INDEX IF NOT EXISTS idx_audit_records_outcome ON audit_records (outcome);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version, once.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `SELECT version FROM schema_version LIMIT 1;`

// Package audit defines the audit trail for rule evaluations: record
// types, the storage interface, and query filters. Subpackages provide
// the async recorder, storage backends (memory, SQLite) and retention
// pruning.
package audit

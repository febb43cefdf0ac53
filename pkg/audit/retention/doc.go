// Package retention enforces retention policies on audit records:
// age-based and count-based pruning, optional JSON archival before
// deletion, and cron-based scheduling.
package retention

// Package health provides liveness and readiness checks for run mode.
// Components register named check functions; the HTTP endpoints
// aggregate them for probes.
package health

// Package telemetry groups Callisto's observability subpackages:
// logging (structured logs), metrics (Prometheus), and health
// (liveness/readiness probes).
package telemetry

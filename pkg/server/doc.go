// Package server provides the HTTP server for run mode. It exposes
// rule evaluation over POST /v1/evaluate, Prometheus metrics, and
// liveness/readiness probes.
package server

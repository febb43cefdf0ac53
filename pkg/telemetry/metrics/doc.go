// Package metrics exposes Prometheus metrics for rule compilation,
// evaluation, and reloads. A Collector owns the registry and the
// metric families; the engine records into it and the run command
// serves it over HTTP.
package metrics

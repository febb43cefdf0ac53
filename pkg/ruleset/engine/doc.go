// Package engine evaluates compiled rule sets against host values and
// produces decisions. It loads rule sets from a source, hot-reloads
// them on change, and optionally records audit records and Prometheus
// metrics for every evaluation.
//
// Decision semantics: rule sets are evaluated in priority order. A
// deny rule stops everything and decides the outcome. An allow rule
// stops its containing set; later sets still run. Tag rules attach
// their tags and evaluation continues. When nothing denies, the
// decision is allow.
package engine

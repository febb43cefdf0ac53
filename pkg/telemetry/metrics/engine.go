package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/config"
)

// EngineMetrics tracks rule engine activity.
//
// Metrics:
//   - evaluations_total: rule set evaluations by outcome
//   - evaluation_duration_seconds: evaluation duration per rule set
//   - rule_hits_total / rule_misses_total: per-rule match counts
//   - compiles_total: rule set compilations by status
//   - reloads_total: rule set reloads by status
//   - loaded_rule_sets / loaded_rules: currently loaded counts
type EngineMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	hitsTotal          *prometheus.CounterVec
	missesTotal        *prometheus.CounterVec
	compilesTotal      *prometheus.CounterVec
	reloadsTotal       *prometheus.CounterVec
	loadedRuleSets     prometheus.Gauge
	loadedRules        prometheus.Gauge
}

// NewEngineMetrics creates and registers the engine metric families.
func NewEngineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EngineMetrics {
	em := &EngineMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of rule set evaluations",
			},
			[]string{"rule_set", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of rule set evaluations in seconds",
				Buckets:   cfg.EvalDurationBuckets,
			},
			[]string{"rule_set"},
		),

		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_hits_total",
				Help:      "Total number of rule condition matches",
			},
			[]string{"rule_set", "rule"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_misses_total",
				Help:      "Total number of rule condition misses",
			},
			[]string{"rule_set", "rule"},
		),

		compilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compiles_total",
				Help:      "Total number of rule set compilations",
			},
			[]string{"status"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "reloads_total",
				Help:      "Total number of rule set reloads",
			},
			[]string{"status"},
		),

		loadedRuleSets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loaded_rule_sets",
				Help:      "Number of currently loaded rule sets",
			},
		),

		loadedRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loaded_rules",
				Help:      "Number of currently loaded rules",
			},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.hitsTotal,
		em.missesTotal,
		em.compilesTotal,
		em.reloadsTotal,
		em.loadedRuleSets,
		em.loadedRules,
	)
	return em
}

// RecordEvaluation records one evaluation with its outcome.
func (em *EngineMetrics) RecordEvaluation(ruleSet, outcome string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(ruleSet, outcome).Inc()
	em.evaluationDuration.WithLabelValues(ruleSet).Observe(duration.Seconds())
}

// RecordHit records a matched rule condition.
func (em *EngineMetrics) RecordHit(ruleSet, rule string) {
	em.hitsTotal.WithLabelValues(ruleSet, rule).Inc()
}

// RecordMiss records an unmatched rule condition.
func (em *EngineMetrics) RecordMiss(ruleSet, rule string) {
	em.missesTotal.WithLabelValues(ruleSet, rule).Inc()
}

// RecordCompile records a compilation attempt ("success" or "error").
func (em *EngineMetrics) RecordCompile(status string) {
	em.compilesTotal.WithLabelValues(status).Inc()
}

// RecordReload records a reload attempt ("success" or "error").
func (em *EngineMetrics) RecordReload(status string) {
	em.reloadsTotal.WithLabelValues(status).Inc()
}

// SetLoaded updates the loaded rule set and rule gauges.
func (em *EngineMetrics) SetLoaded(ruleSets, rules int) {
	em.loadedRuleSets.Set(float64(ruleSets))
	em.loadedRules.Set(float64(rules))
}

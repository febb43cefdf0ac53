package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/config"
)

// Collector owns the Prometheus registry and all engine metric
// families. A disabled collector records nothing but stays safe to
// call, so the engine never branches on metrics configuration.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	engineMetrics *EngineMetrics

	// Rule set names are user-supplied; cap label cardinality so a
	// misbehaving source cannot blow up the registry.
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector with the given configuration and
// registry. A nil registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults.Metrics
		cfg.Enabled = true
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
	c.engineMetrics = NewEngineMetrics(cfg, registry)
	return c
}

// RecordEvaluation records one rule set evaluation.
func (c *Collector) RecordEvaluation(ruleSet, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	ruleSet = c.boundLabel("eval", ruleSet)
	c.engineMetrics.RecordEvaluation(ruleSet, outcome, duration)
}

// RecordRuleHit records a rule whose condition matched.
func (c *Collector) RecordRuleHit(ruleSet, rule string) {
	if !c.config.Enabled {
		return
	}
	ruleSet = c.boundLabel("hit", ruleSet)
	c.engineMetrics.RecordHit(ruleSet, rule)
}

// RecordRuleMiss records a rule whose condition did not match.
func (c *Collector) RecordRuleMiss(ruleSet, rule string) {
	if !c.config.Enabled {
		return
	}
	ruleSet = c.boundLabel("miss", ruleSet)
	c.engineMetrics.RecordMiss(ruleSet, rule)
}

// RecordCompile records a rule set compilation attempt.
func (c *Collector) RecordCompile(status string) {
	if !c.config.Enabled {
		return
	}
	c.engineMetrics.RecordCompile(status)
}

// RecordReload records a rule set reload attempt.
func (c *Collector) RecordReload(status string) {
	if !c.config.Enabled {
		return
	}
	c.engineMetrics.RecordReload(status)
}

// SetLoadedRules updates the loaded rule set and rule gauges.
func (c *Collector) SetLoadedRules(ruleSets, rules int) {
	if !c.config.Enabled {
		return
	}
	c.engineMetrics.SetLoaded(ruleSets, rules)
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// boundLabel folds a label value into "other" once the cardinality
// limit is reached.
func (c *Collector) boundLabel(kind, value string) string {
	if c.cardinalityLimiter.Allow(fmt.Sprintf("%s:%s", kind, value)) {
		return value
	}
	return "other"
}

// CardinalityLimiter caps the number of unique label values the
// collector will emit.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter with the given cap.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether the label set may be emitted. Known label sets
// are always allowed; new ones only below the cap.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

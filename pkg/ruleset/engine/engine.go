package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/audit/recorder"
	"mercator-hq/callisto/pkg/rule"
	"mercator-hq/callisto/pkg/ruleset"
	"mercator-hq/callisto/pkg/ruleset/source"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// Engine evaluates loaded rule sets against things. The loaded sets
// are swapped atomically on reload, so evaluations always see a
// consistent snapshot.
type Engine struct {
	mu   sync.RWMutex
	sets []*ruleset.CompiledSet

	source   source.Source
	rctx     *rule.Context
	config   *Config
	recorder *recorder.Recorder
	metrics  *metrics.Collector
	logger   *slog.Logger

	reloadCron *cron.Cron
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches an audit recorder. Every evaluation then
// produces an audit record.
func WithRecorder(r *recorder.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithRuleContext sets the evaluation context rules compile against.
// Use this to install custom resolvers or regex flags.
func WithRuleContext(rctx *rule.Context) Option {
	return func(e *Engine) { e.rctx = rctx }
}

// New creates an engine, performs the initial load from the source,
// and starts watching and scheduled reloads per the configuration.
func New(ctx context.Context, src source.Source, config *Config, opts ...Option) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("rule set source cannot be nil")
	}

	e := &Engine{
		source: src,
		config: config,
		logger: slog.Default().With("component", "ruleset.engine"),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rctx == nil {
		e.rctx = rule.NewContext()
	}

	if err := e.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load initial rule sets: %w", err)
	}

	if config.Watch {
		e.startWatching()
	}
	if config.ReloadSchedule != "" {
		if err := e.startReloadSchedule(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Evaluate runs all loaded rule sets against thing and returns the
// decision. A nil ctx is rejected; pass context.Background() for
// unbounded evaluations.
func (e *Engine) Evaluate(ctx context.Context, thing any) (*Decision, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	start := time.Now()
	if e.config.EvalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.EvalTimeout)
		defer cancel()
	}

	e.mu.RLock()
	sets := e.sets
	e.mu.RUnlock()

	decision := &Decision{Action: ruleset.ActionAllow}

	for _, set := range sets {
		stopSet := false
		for _, cr := range set.Rules {
			matched, err := cr.Expr.MatchesContext(ctx, thing)
			if err != nil {
				return e.handleEvaluationError(ctx, set.Set.Name, cr.Def.Name, thing, err, start)
			}

			if !matched {
				e.recordMiss(set.Set.Name, cr.Def.Name)
				continue
			}
			e.recordHit(set.Set.Name, cr.Def.Name)
			decision.Matched = append(decision.Matched, MatchedRule{
				RuleSet: set.Set.Name,
				Rule:    cr.Def.Name,
				Action:  cr.Def.Action,
			})

			switch cr.Def.Action {
			case ruleset.ActionDeny:
				decision.Action = ruleset.ActionDeny
				decision.RuleSet = set.Set.Name
				decision.Rule = cr.Def.Name
				decision.Reason = cr.Def.Reason
				decision.EvaluationTime = time.Since(start)
				e.finish(ctx, decision, cr.Expr.Text(), thing, nil)
				return decision, nil

			case ruleset.ActionAllow:
				// Stops the containing set only; later sets may still
				// deny.
				stopSet = true

			case ruleset.ActionTag:
				decision.Tags = appendUnique(decision.Tags, cr.Def.Tags...)
			}

			if stopSet {
				break
			}
		}
	}

	decision.EvaluationTime = time.Since(start)
	e.finish(ctx, decision, "", thing, nil)
	return decision, nil
}

// handleEvaluationError resolves an errored evaluation per the fail
// mode. The error is folded into the decision rather than returned, so
// callers always get a usable outcome.
func (e *Engine) handleEvaluationError(ctx context.Context, setName, ruleName string, thing any, err error, start time.Time) (*Decision, error) {
	e.logger.Error("rule evaluation error",
		"rule_set", setName,
		"rule", ruleName,
		"fail_mode", e.config.FailMode,
		"error", err,
	)

	decision := &Decision{
		RuleSet:        setName,
		Rule:           ruleName,
		Err:            err,
		EvaluationTime: time.Since(start),
	}
	switch e.config.FailMode {
	case FailOpen:
		decision.Action = ruleset.ActionAllow
	default:
		decision.Action = ruleset.ActionDeny
		decision.Reason = "rule evaluation error"
	}

	e.finish(ctx, decision, "", thing, err)
	return decision, nil
}

// finish records metrics and audit for a completed evaluation.
func (e *Engine) finish(ctx context.Context, decision *Decision, expression string, thing any, evalErr error) {
	outcome := audit.OutcomeAllow
	if evalErr != nil {
		outcome = audit.OutcomeError
	} else if decision.Denied() {
		outcome = audit.OutcomeDeny
	}

	if e.metrics != nil {
		setLabel := decision.RuleSet
		if setLabel == "" {
			setLabel = "none"
		}
		e.metrics.RecordEvaluation(setLabel, string(outcome), decision.EvaluationTime)
	}

	if e.recorder != nil {
		record := &audit.Record{
			RuleSet:    decision.RuleSet,
			Rule:       decision.Rule,
			Expression: expression,
			Outcome:    outcome,
			Reason:     decision.Reason,
			Tags:       decision.Tags,
			Thing:      e.recorder.RecordThing(thing),
			Duration:   decision.EvaluationTime,
		}
		if evalErr != nil {
			record.Error = evalErr.Error()
		}
		e.recorder.Record(ctx, record)
	}
}

func (e *Engine) recordHit(setName, ruleName string) {
	if e.metrics != nil {
		e.metrics.RecordRuleHit(setName, ruleName)
	}
}

func (e *Engine) recordMiss(setName, ruleName string) {
	if e.metrics != nil {
		e.metrics.RecordRuleMiss(setName, ruleName)
	}
}

// Reload loads rule sets from the source, compiles them, and swaps
// them in atomically. A failed reload leaves the previous sets in
// place.
func (e *Engine) Reload(ctx context.Context) error {
	sets, err := e.source.Load(ctx)
	if err != nil {
		e.recordReload("error")
		return fmt.Errorf("failed to load rule sets: %w", err)
	}

	if len(sets) > e.config.MaxRuleSets {
		e.recordReload("error")
		return fmt.Errorf("too many rule sets: %d (max %d)", len(sets), e.config.MaxRuleSets)
	}

	seen := make(map[string]struct{}, len(sets))
	totalRules := 0
	for _, set := range sets {
		if _, dup := seen[set.Name]; dup {
			e.recordReload("error")
			return fmt.Errorf("duplicate rule set name %q", set.Name)
		}
		seen[set.Name] = struct{}{}
		if len(set.Rules) > e.config.MaxRulesPerSet {
			e.recordReload("error")
			return fmt.Errorf("rule set %q has too many rules: %d (max %d)",
				set.Name, len(set.Rules), e.config.MaxRulesPerSet)
		}
		totalRules += len(set.Rules)
	}

	ruleset.SortSets(sets)

	compiled := make([]*ruleset.CompiledSet, 0, len(sets))
	for _, set := range sets {
		cs, err := set.Compile(e.rctx)
		if err != nil {
			e.recordCompile("error")
			e.recordReload("error")
			return fmt.Errorf("failed to compile rule set: %w", err)
		}
		e.recordCompile("success")
		compiled = append(compiled, cs)
	}

	e.mu.Lock()
	e.sets = compiled
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.SetLoadedRules(len(compiled), totalRules)
	}
	e.recordReload("success")

	e.logger.Info("rule sets loaded",
		"rule_sets", len(compiled),
		"rules", totalRules,
	)
	return nil
}

// RuleSets returns the currently loaded compiled sets, for
// introspection.
func (e *Engine) RuleSets() []*ruleset.CompiledSet {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sets := make([]*ruleset.CompiledSet, len(e.sets))
	copy(sets, e.sets)
	return sets
}

func (e *Engine) recordCompile(status string) {
	if e.metrics != nil {
		e.metrics.RecordCompile(status)
	}
}

func (e *Engine) recordReload(status string) {
	if e.metrics != nil {
		e.metrics.RecordReload(status)
	}
}

// startWatching reloads whenever the source reports a change.
func (e *Engine) startWatching() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-e.stopCh
			cancel()
		}()

		eventCh, err := e.source.Watch(ctx)
		if err != nil {
			e.logger.Error("failed to start rule set watcher", "error", err)
			return
		}

		for {
			select {
			case <-e.stopCh:
				return
			case event, ok := <-eventCh:
				if !ok {
					return
				}
				e.handleSourceEvent(ctx, event)
			}
		}
	}()
}

// handleSourceEvent reloads in response to a source change.
func (e *Engine) handleSourceEvent(ctx context.Context, event source.Event) {
	if event.Err != nil {
		e.logger.Error("rule set watcher error", "error", event.Err)
		return
	}

	e.logger.Info("rule set source changed",
		"type", event.Type,
		"path", event.Path,
	)
	if err := e.Reload(ctx); err != nil {
		e.logger.Error("failed to reload rule sets after source change",
			"path", event.Path,
			"error", err,
		)
	}
}

// startReloadSchedule starts the periodic reload cron.
func (e *Engine) startReloadSchedule() error {
	e.reloadCron = cron.New()
	_, err := e.reloadCron.AddFunc(e.config.ReloadSchedule, func() {
		if err := e.Reload(context.Background()); err != nil {
			e.logger.Error("scheduled reload failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reloads: %w", err)
	}
	e.reloadCron.Start()
	e.logger.Info("reload schedule started", "schedule", e.config.ReloadSchedule)
	return nil
}

// Close stops watching and scheduled reloads. It does not close the
// recorder or source; those may be shared.
func (e *Engine) Close() error {
	close(e.stopCh)
	if e.reloadCron != nil {
		<-e.reloadCron.Stop().Done()
	}
	e.wg.Wait()
	return nil
}

// appendUnique appends values not already present.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/ruleset/engine"
	"mercator-hq/callisto/pkg/telemetry/health"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// Server serves rule evaluation over HTTP.
type Server struct {
	config     *config.Config
	engine     *engine.Engine
	metrics    *metrics.Collector
	checker    *health.Checker
	httpServer *http.Server
	logger     *slog.Logger

	mu        sync.RWMutex
	isRunning bool
}

// New creates a server around an engine. The metrics collector may be
// nil; the metrics endpoint is then omitted.
func New(cfg *config.Config, eng *engine.Engine, collector *metrics.Collector) *Server {
	checker := health.New(0)
	checker.Register("engine", func(ctx context.Context) error {
		if len(eng.RuleSets()) == 0 {
			return fmt.Errorf("no rule sets loaded")
		}
		return nil
	})

	return &Server{
		config:  cfg,
		engine:  eng,
		metrics: collector,
		checker: checker,
		logger:  slog.Default().With("component", "server"),
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or
// the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.Server.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.config.Server.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	running := s.isRunning
	s.isRunning = false
	s.mu.Unlock()
	if !running || s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/evaluate", http.HandlerFunc(s.handleEvaluate))
	mux.Handle("/healthz", s.checker.LivenessHandler())
	mux.Handle("/readyz", s.checker.ReadinessHandler())
	if s.metrics != nil {
		mux.Handle(s.config.Metrics.Path, s.metrics.Handler())
	}
	return mux
}

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	// Thing is the value the rule sets are evaluated against.
	Thing any `json:"thing"`
}

// EvaluateResponse is the body returned by POST /v1/evaluate.
type EvaluateResponse struct {
	Action     string   `json:"action"`
	RuleSet    string   `json:"rule_set,omitempty"`
	Rule       string   `json:"rule,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS float64  `json:"duration_ms"`
}

// handleEvaluate evaluates the posted thing against the loaded rule
// sets.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	decision, err := s.engine.Evaluate(r.Context(), req.Thing)
	if err != nil {
		http.Error(w, fmt.Sprintf("evaluation failed: %v", err), http.StatusInternalServerError)
		return
	}

	resp := EvaluateResponse{
		Action:     string(decision.Action),
		RuleSet:    decision.RuleSet,
		Rule:       decision.Rule,
		Reason:     decision.Reason,
		Tags:       decision.Tags,
		DurationMS: float64(decision.EvaluationTime.Microseconds()) / 1000,
	}
	if decision.Err != nil {
		resp.Error = decision.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/audit/recorder"
	"mercator-hq/callisto/pkg/audit/retention"
	auditStorage "mercator-hq/callisto/pkg/audit/storage"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/ruleset/engine"
	"mercator-hq/callisto/pkg/ruleset/source"
	"mercator-hq/callisto/pkg/server"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Callisto evaluation server",
	Long: `Start the Callisto evaluation server with the specified configuration.

The server loads rule sets from the configured source, watches them for
changes, and evaluates things posted to /v1/evaluate. Audit recording,
retention pruning, and Prometheus metrics are wired in per the
configuration.

Examples:
  # Start with default config
  callisto run

  # Start with custom config
  callisto run --config /etc/callisto/config.yaml

  # Override listen address
  callisto run --listen 0.0.0.0:8080

  # Validate config without starting the server
  callisto run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	if err := logging.Setup(&cfg.Logging, nil); err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Callisto v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	logger := slog.Default()

	// Rule set source
	src, err := buildSource(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Audit recording
	var auditRecorder *recorder.Recorder
	if cfg.Audit.Enabled {
		slog.Info("initializing audit recording", "backend", cfg.Audit.Backend)

		var store audit.Storage
		switch cfg.Audit.Backend {
		case "sqlite":
			store, err = auditStorage.NewSQLite(&auditStorage.SQLiteConfig{
				Path:         cfg.Audit.SQLite.Path,
				MaxOpenConns: cfg.Audit.SQLite.MaxOpenConns,
				MaxIdleConns: cfg.Audit.SQLite.MaxIdleConns,
				WALMode:      cfg.Audit.SQLite.WALMode,
				BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
			})
			if err != nil {
				return fmt.Errorf("failed to create SQLite storage: %w", err)
			}
		case "memory":
			store = auditStorage.NewMemory()
		default:
			return fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
		}
		defer store.Close()

		auditRecorder = recorder.NewRecorder(store, &recorder.Config{
			Enabled:      true,
			AsyncBuffer:  cfg.Audit.AsyncBuffer,
			WriteTimeout: cfg.Audit.WriteTimeout,
			RecordThings: cfg.Audit.RecordThings,
		})
		defer auditRecorder.Close()

		// Start retention pruner if a schedule is configured
		if cfg.Audit.Retention.Schedule != "" {
			pruner := retention.NewPruner(store, &retention.Config{
				RetentionDays:       cfg.Audit.Retention.Days,
				PruneSchedule:       cfg.Audit.Retention.Schedule,
				ArchiveBeforeDelete: cfg.Audit.Retention.ArchiveBeforeDelete,
				ArchivePath:         cfg.Audit.Retention.ArchivePath,
				MaxRecords:          cfg.Audit.Retention.MaxRecords,
			})
			if err := pruner.Start(context.Background()); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					slog.Debug("audit retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Println("✓ Audit store initialized")
	}

	// Metrics
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Metrics, nil)
	}

	// Evaluation engine
	engineConfig := engine.DefaultConfig()
	engineConfig.FailMode = engine.FailMode(cfg.Engine.FailMode)
	engineConfig.EvalTimeout = cfg.Engine.EvalTimeout
	engineConfig.ReloadSchedule = cfg.Engine.ReloadSchedule
	engineConfig.Watch = cfg.Source.Watch

	var engineOpts []engine.Option
	if auditRecorder != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(auditRecorder))
	}
	if collector != nil {
		engineOpts = append(engineOpts, engine.WithMetrics(collector))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng, err := engine.New(ctx, src, engineConfig, engineOpts...)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to create engine: %w", err))
	}
	defer eng.Close()

	fmt.Printf("✓ Rule sets loaded (%d sets)\n", len(eng.RuleSets()))

	// HTTP server
	srv := server.New(cfg, eng, collector)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Evaluate endpoint: http://%s/v1/evaluate\n", cfg.Server.ListenAddress)
	if cfg.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal or server error
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}
		fmt.Println("✓ Server stopped")
		return nil
	}
}

// buildSource creates the rule set source from the configuration.
func buildSource(cfg *config.Config, logger *slog.Logger) (source.Source, error) {
	switch cfg.Source.Mode {
	case "file", "":
		slog.Info("using file rule set source", "path", cfg.Source.Path)
		var opts []source.FileOption
		if cfg.Source.DebounceInterval > 0 {
			opts = append(opts, source.WithDebounceInterval(cfg.Source.DebounceInterval))
		}
		return source.NewFile(cfg.Source.Path, logger, opts...), nil

	case "git":
		slog.Info("using git rule set source",
			"repository", cfg.Source.Git.Repository,
			"branch", cfg.Source.Git.Branch,
		)
		return source.NewGit(&source.GitConfig{
			Repository:   cfg.Source.Git.Repository,
			Branch:       cfg.Source.Git.Branch,
			Path:         cfg.Source.Path,
			LocalPath:    cfg.Source.Git.LocalPath,
			PollInterval: cfg.Source.Git.PollInterval,
			Timeout:      cfg.Source.Git.Timeout,
			Username:     cfg.Source.Git.Username,
			Token:        cfg.Source.Git.Token,
		}, logger)

	default:
		return nil, fmt.Errorf("unsupported source mode: %s", cfg.Source.Mode)
	}
}

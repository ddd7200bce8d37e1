// Harrier - Claims fraud and underwriting risk scoring in one binary.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/config"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/extraction"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/history"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/scheduler"
	"github.com/opensource-finance/harrier/internal/underwriting"
	"github.com/opensource-finance/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"extraction", cfg.Extraction.Endpoint != "",
		"tracing", cfg.Tracing.Enabled,
	)

	if err := run(cfg, logger); err != nil {
		slog.Error("harrier exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("harrier shutdown complete")
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("HARRIER_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(cfg *domain.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Scorers
	fraudScorer, err := fraud.NewScorer(cfg.Scoring.FraudTiers,
		fraud.WithWorkers(cfg.Scoring.BatchWorkers),
		fraud.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("fraud scorer: %w", err)
	}
	uwScorer, err := underwriting.NewScorer(cfg.Scoring.UnderwritingTiers,
		underwriting.WithWorkers(cfg.Scoring.BatchWorkers),
		underwriting.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("underwriting scorer: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithRepository(repo),
		pipeline.WithCache(cacheImpl, cfg.Cache.AssessmentTTL),
		pipeline.WithBus(busImpl),
		pipeline.WithLogger(logger),
		pipeline.WithDocuments(newExtractor(cfg.Extraction, logger), nil, nil, cfg.Upload),
	}
	if cfg.History.Enabled {
		opts = append(opts, pipeline.WithHistory(history.NewService(repo, cfg.History.Window)))
		slog.Info("claim history enabled", "window", cfg.History.Window)
	}

	pipe, err := pipeline.New(fraudScorer, uwScorer, opts...)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	// Load rules from database (configure via POST /validation-rules)
	n, err := pipe.ReloadAllRules(ctx)
	if err != nil {
		slog.Warn("failed to load validation rules", "error", err)
	} else {
		slog.Info("validation rules loaded", "count", n)
	}

	// Async worker for /claims/submit and /applications/submit
	asyncWorker := worker.NewWorker(busImpl, pipe, logger)
	if err := asyncWorker.Start(worker.Config{TenantIDs: tenantsFromEnv()}); err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	sched, err := newScheduler(cfg.Scheduler, pipe, repo, logger)
	if err != nil {
		_ = asyncWorker.Stop()
		return err
	}
	sched.Start()

	srv := api.NewServer(cfg.Server, api.Deps{
		Pipeline:     pipe,
		Repo:         repo,
		Cache:        cacheImpl,
		Bus:          busImpl,
		MaxBatchSize: cfg.Scoring.MaxBatchSize,
		Upload:       cfg.Upload,

		SubmitRateLimit: cfg.Server.SubmitRateLimit,
	}, Version)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)
	printBanner(cfg, Version)

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case runErr = <-serveErr:
		slog.Error("server failed", "error", runErr)
	}

	// Stop intake first so nothing new is scored during shutdown.
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop async worker", "error", err)
	}
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	return runErr
}

// newExtractor returns nil when no endpoint is configured; document
// uploads then answer 503.
func newExtractor(cfg domain.ExtractionConfig, logger *slog.Logger) domain.Extractor {
	if cfg.Endpoint == "" {
		slog.Info("document extraction disabled")
		return nil
	}
	slog.Info("document extraction enabled", "endpoint", cfg.Endpoint, "max_retries", cfg.MaxRetries)
	return extraction.WithRetry(extraction.NewClient(cfg), cfg.MaxRetries, cfg.RetryDelay, logger)
}

func newScheduler(cfg domain.SchedulerConfig, pipe *pipeline.Pipeline, repo *repository.SQLRepository, logger *slog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(logger)

	if err := sched.AddJob(cfg.RuleReloadSpec, scheduler.NewRuleReloadJob(pipe, logger)); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if cfg.Retention > 0 {
		prune, err := scheduler.NewPruneJob(repo, cfg.Retention, logger)
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		if err := sched.AddJob(cfg.PruneSpec, prune); err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
	}
	return sched, nil
}

// tenantsFromEnv reads HARRIER_TENANTS, a comma-separated list. Empty means
// the worker serves every tenant.
func tenantsFromEnv() []string {
	var tenants []string
	for _, t := range strings.Split(os.Getenv("HARRIER_TENANTS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tenants = append(tenants, t)
		}
	}
	return tenants
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║                 HARRIER                   ║")
	fmt.Println("  ║    Claims Fraud & Underwriting Scoring    ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /fraud/score                  - Score one claim")
	fmt.Println("    POST /fraud/batch                  - Score a batch of claims")
	fmt.Println("    POST /underwriting/score           - Score one application")
	fmt.Println("    POST /underwriting/batch           - Score a batch of applications")
	fmt.Println("    POST /claims/submit                - Queue a claim for scoring")
	fmt.Println("    POST /applications/submit          - Queue an application")
	fmt.Println("    GET  /assessments/{id}             - Get a stored assessment")
	fmt.Println("    GET  /synthetic/claims             - Generate sample claims")
	fmt.Println("    POST /documents                    - Upload and validate a document")
	fmt.Println("    GET  /documents/{id}/export        - Export fields as CSV")
	fmt.Println("    POST /validation-rules             - Create a validation rule")
	fmt.Println("    POST /validation-rules/reload      - Hot-reload rules")
	fmt.Println("    GET  /health                       - Health check")
	fmt.Println()
}

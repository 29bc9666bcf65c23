package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ledgerprep/internal/config"
	"github.com/JonMunkholm/ledgerprep/internal/core"
	_ "github.com/JonMunkholm/ledgerprep/internal/core/profiles" // Register dataset profiles
	"github.com/JonMunkholm/ledgerprep/internal/logging"
	"github.com/JonMunkholm/ledgerprep/internal/metrics"
	"github.com/JonMunkholm/ledgerprep/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_sessions", cfg.Session.MaxSessions,
		"compute_max_concurrent", cfg.Compute.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"database", cfg.Database.Enabled(),
	)

	ctx := context.Background()

	// Recipes live in PostgreSQL when a database is configured, in memory
	// otherwise.
	var store core.RecipeStore
	if cfg.Database.Enabled() {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := core.NewPgRecipeStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare recipe schema", "error", err)
			os.Exit(1)
		}
		store = pg
	} else {
		slog.Info("no database configured, recipes are kept in memory")
	}

	collector := metrics.New(true)

	scanDefaults := core.DefaultScanConfig()
	scanDefaults.ZThreshold = cfg.Scan.ZThreshold
	scanDefaults.MostlyEmptyRatio = cfg.Scan.MostlyEmptyRatio

	service := core.NewService(core.ServiceConfig{
		MaxSessions:       cfg.Session.MaxSessions,
		IdleTTL:           cfg.Session.IdleTTL,
		MaxConcurrentJobs: cfg.Compute.MaxConcurrent,
		MaxJobWait:        cfg.Compute.MaxWaitTime,
		Session: core.SessionOptions{
			HistoryLimit: cfg.Session.HistoryLimit,
			SampleSize:   cfg.Scan.SampleSize,
			ScanDefaults: scanDefaults,
			Logger:       logger,
		},
	}, store, core.WithMetrics(collector), core.WithLogger(logger))

	// Log registered profiles
	slog.Info("profiles registered", "count", core.ProfileCount())
	for _, p := range core.All() {
		slog.Debug("profile", "key", p.Key, "group", p.Group, "required", len(p.RequiredColumns()))
	}

	server := web.NewServer(service, cfg, collector.Handler())

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSweeper(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for running engine jobs, then drop sessions.
		status := service.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for jobs to complete", "active", status.Active)
		}
		if err := service.Close(shutdownCtx); err != nil {
			slog.Warn("jobs did not complete in time", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connect opens and verifies the connection pool.
func connect(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(dbCfg.MaxConns)
	poolConfig.MinConns = int32(dbCfg.MinConns)
	poolConfig.MaxConnLifetime = dbCfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbCfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(dbCfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

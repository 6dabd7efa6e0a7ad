package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/formstage/internal/config"
	"github.com/JonMunkholm/formstage/internal/form"
	"github.com/JonMunkholm/formstage/internal/journal"
	"github.com/JonMunkholm/formstage/internal/limiter"
	"github.com/JonMunkholm/formstage/internal/logging"
	"github.com/JonMunkholm/formstage/internal/metrics"
	"github.com/JonMunkholm/formstage/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"tmp_dir", cfg.Upload.Dir(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"retain", cfg.Upload.Retain,
		"journal", cfg.JournalEnabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := os.MkdirAll(cfg.Upload.Dir(), 0o755); err != nil {
		logger.Error("failed to create staging directory", "dir", cfg.Upload.Dir(), "error", err)
		os.Exit(1)
	}

	collector, err := metrics.NewCollector(metrics.Config{Namespace: cfg.Metrics.Namespace})
	if err != nil {
		logger.Error("failed to create metrics collector", "error", err)
		os.Exit(1)
	}

	slots := limiter.New(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	slots.SetGauge(collector.ActiveParses())

	observers := form.Observers{collector}

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.JournalEnabled() {
		pool, err := journal.Connect(jobCtx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		j := journal.New(pool, logger)
		if err := j.Migrate(jobCtx); err != nil {
			logger.Error("failed to migrate journal", "error", err)
			os.Exit(1)
		}
		observers = append(observers, j)

		sweeper := journal.NewSweeper(j, journal.SweeperConfig{
			TTL:       cfg.Journal.TTL,
			Interval:  cfg.Journal.SweepInterval,
			BatchSize: cfg.Journal.BatchSize,
		}, logger, collector)
		go sweeper.Run(jobCtx)

		logger.Info("journal enabled", "ttl", cfg.Journal.TTL, "sweep_interval", cfg.Journal.SweepInterval)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = collector.Handler()
	}

	server := web.NewServer(web.Deps{
		Config:   cfg,
		Limiter:  slots,
		Observer: observers,
		Metrics:  metricsHandler,
		Logger:   logger,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := slots.ActiveCount(); active > 0 {
			logger.Info("waiting for uploads to complete", "active", active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	logger.Info("server stopped")
}

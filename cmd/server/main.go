// Package main is the entry point of the investlog server.
// It records investment transactions, refreshes quotes once a day, keeps
// price snapshots and computes daily profit with monthly and yearly rollups.
//
// Startup order:
// - Configuration from environment variables (.env file)
// - Databases, repositories and services via the DI container
// - Cron scheduler with the daily refresh and housekeeping jobs
// - HTTP API
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/investlog/internal/config"
	"github.com/aristath/investlog/internal/di"
	"github.com/aristath/investlog/internal/scheduler"
	"github.com/aristath/investlog/internal/server"
	"github.com/aristath/investlog/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("timezone", cfg.Valuation.Timezone).
		Msg("Starting investlog")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Closing checkpoints the WAL of every database
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close databases")
		}
	}()

	sched := scheduler.New(container.Location, log)
	if err := di.ScheduleJobs(sched, jobs, cfg); err != nil {
		log.Error().Err(err).Msg("Failed to schedule jobs")
		return
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
		Jobs:      jobs,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	log.Info().Msg("Shutting down server...")

	// Waits for a running daily refresh to finish
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

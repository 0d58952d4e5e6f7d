// Package main is the entry point of the sampler HTTP service.
//
// The server accepts sampler run requests over HTTP, executes them with the
// Markov Jump HMC sampler and keeps every run (configuration, summary and
// samples) in a SQLite store under the data directory.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/mjhmc/internal/config"
	"github.com/aristath/mjhmc/internal/di"
	"github.com/aristath/mjhmc/internal/server"
	"github.com/aristath/mjhmc/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("workers", cfg.Workers).
		Int("max_samples", cfg.MaxSamples).
		Msg("Starting mjhmc")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	srv := server.New(server.Config{
		Log:     log,
		RunsDB:  container.RunsDB,
		Runs:    container.RunsService,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
	})

	if container.Scheduler != nil {
		container.Scheduler.Start()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if container.Scheduler != nil {
		container.Scheduler.Stop()
	}

	if err := container.RunsDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Final WAL checkpoint failed")
	}
	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close runs database")
	}

	log.Info().Msg("Server stopped")
}

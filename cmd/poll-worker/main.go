package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"schulmanager-sync/internal/cache"
	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/coordinator"
	"schulmanager-sync/internal/logger"
	"schulmanager-sync/internal/portal"
	"schulmanager-sync/internal/worker"
)

// Headless variant for deployments that do not need the HTTP API. Do not
// run it next to the API server; the API runs its own poll loop.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting poll worker")

	// Initialize Redis client
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	store := cache.NewStore(redisClient, cfg)

	// Initialize portal client and coordinator
	client := portal.NewService(cfg)
	coord := coordinator.New(cfg, client, store)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	pollWorker := worker.NewPollWorker(cfg, coord)
	if err := pollWorker.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Poll worker stopped")
	}

	log.Info().Msg("Poll worker exited")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"schulmanager-sync/internal/api"
	"schulmanager-sync/internal/cache"
	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/coordinator"
	"schulmanager-sync/internal/logger"
	"schulmanager-sync/internal/portal"
	"schulmanager-sync/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting API server")

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

	// Serve the last persisted snapshot until the first live refresh lands.
	if snapshot, err := store.LoadSnapshot(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to load persisted snapshot")
	} else if snapshot != nil {
		coord.SeedSnapshot(snapshot)
		log.Info().Int("students", len(snapshot.Students)).Msg("Seeded snapshot from cache")
	}

	// Initialize API handler
	handler := api.NewHandler(coord, cfg)

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.CORSMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.RecoveryMiddleware())

	// Setup routes
	api.SetupRoutes(router, handler)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start poll worker in goroutine
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	pollWorker := worker.NewPollWorker(cfg, coord)
	go func() {
		if err := pollWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Poll worker stopped")
		}
	}()

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	// Create context for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown server
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avatarlab/headcast/internal/api"
	"github.com/avatarlab/headcast/internal/config"
	"github.com/avatarlab/headcast/internal/db"
	"github.com/avatarlab/headcast/internal/expression"
	"github.com/avatarlab/headcast/internal/model"
	"github.com/avatarlab/headcast/internal/pipeline"
	"github.com/avatarlab/headcast/internal/queue"
	"github.com/avatarlab/headcast/internal/services"
	"github.com/avatarlab/headcast/internal/storage"
	"github.com/avatarlab/headcast/internal/worker"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Info().Msg("starting headcast API")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()
	log.Info().Msg("connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()
	log.Info().Msg("connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Info().Str("bucket", cfg.SupabaseStorageBucket).Msg("initialized Supabase storage")

	// Create API handler
	handler := api.NewHandler(database, q, stor, cfg.SourceImage)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Info().Msg("API key authentication enabled")
	} else {
		log.Warn().Msg("no BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Info().Msg("worker enabled, loading model bundle")

		engine, err := model.NewEngine(model.EngineConfig{
			ModelDir:       cfg.ModelDir,
			ManifestPath:   cfg.CheckpointManifest,
			ORTLibraryPath: cfg.ORTLibraryPath,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load models")
		}
		defer engine.Close()

		ffmpegSvc := services.NewFFmpegService(filepath.Join(cfg.TempDir, "headcast"))

		baseCfg := pipeline.Config{
			AudioWindowSize: cfg.AudioWindowSize,
			AudioFrameRatio: cfg.AudioFrameRatio,
			StyleMaxLen:     cfg.StyleMaxLen,
			StyleStartIndex: cfg.StyleStartIndex,
			WindowRadius:    cfg.ExpressionWindowRadius,
			BatchSize:       cfg.RenderBatchSize,
			FPS:             cfg.VideoFPS,
		}

		nets := expression.Models{Content: engine, Style: engine, Decoder: engine}
		w := worker.New(database, q, stor, nets, engine, ffmpegSvc, baseCfg, cfg.TempDir, log.Logger)

		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

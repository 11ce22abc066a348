package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/cache"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/database"
	"github.com/stemsi/exstem-practice/internal/engine"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/logger"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/remote"
	"github.com/stemsi/exstem-practice/internal/repository"
	"github.com/stemsi/exstem-practice/internal/router"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
	"github.com/stemsi/exstem-practice/internal/worker"
)

const (
	sessionStartsPerMinute = 10
	comprehensiveRunTTL    = 40 * 24 * time.Hour
	sweepInterval          = time.Minute
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("remote_api", cfg.RemoteAPIURL).
		Msg("Starting ExStem Practice")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Stores ─────────────────────────────────────────────
	resultRepo := repository.NewResultRepository(pool)
	attempts := cache.NewRedisAttemptCache(rdb, cfg.AttemptCacheTTL)
	runs := cache.NewRedisRunStore(rdb, comprehensiveRunTTL)
	resultQueue := worker.NewResultQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	examAPI := remote.NewClient(cfg.RemoteAPIURL, cfg.RemoteTimeout, log)
	authService := service.NewAuthService(cfg)
	practiceService := service.NewPracticeService(
		examAPI, examAPI, attempts, resultQueue, resultRepo,
		service.PracticeConfig{
			DefaultDurationSeconds: cfg.DefaultDurationSeconds,
			TickInterval:           cfg.TickInterval,
			SubmitTimeout:          2 * cfg.RemoteTimeout,
			Coordinator: engine.CoordinatorConfig{
				Concurrency: cfg.SubmitConcurrency,
				RetryPasses: cfg.AnswerRetryPasses,
			},
			IdleTimeout: cfg.SessionIdleTimeout,
		},
		log,
	)
	driver := service.NewComprehensiveDriver(practiceService, runs, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Practice:      handler.NewPracticeHandler(practiceService, log),
		Comprehensive: handler.NewComprehensiveHandler(driver, log),
		Events:        handler.NewEventsHandler(practiceService, log),
		WS:            handler.NewWSHandler(practiceService, log, cfg.AllowedOrigins),
		System:        handler.NewSystemHandler(practiceService, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	archiveWorker := worker.NewResultArchiveWorker(resultRepo, rdb, log)
	archiveDone := make(chan struct{})
	go func() {
		defer close(archiveDone)
		archiveWorker.Start(workerCtx)
	}()

	go practiceService.RunSweeper(workerCtx, sweepInterval)

	startLimiter := middleware.NewRateLimiter(sessionStartsPerMinute, time.Minute)
	go startLimiter.Run(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, startLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Open WebSocket streams are
	// hijacked and end when their sessions are closed below.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop timers. Attempts stay cached so students can restore later.
	practiceService.Shutdown()

	// 3. Stop background workers and wait for the archive queue to drain.
	workerCancel()
	select {
	case <-archiveDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Result archive worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

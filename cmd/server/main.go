package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rajat-malhotra0/draw-agent/internal/config"
	"github.com/Rajat-malhotra0/draw-agent/internal/handlers"
	"github.com/Rajat-malhotra0/draw-agent/internal/logs"
	"github.com/Rajat-malhotra0/draw-agent/internal/middleware"
	"github.com/Rajat-malhotra0/draw-agent/internal/relay"
	"github.com/Rajat-malhotra0/draw-agent/internal/repository"
	"github.com/Rajat-malhotra0/draw-agent/internal/router"
	"github.com/Rajat-malhotra0/draw-agent/internal/scheduler"
	"github.com/Rajat-malhotra0/draw-agent/internal/services"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logger := logs.New(cfg)
	if err := cfg.Verify(); err != nil {
		logger.Fatal().Err(err).Msg("✗ Invalid configuration")
	}
	log.Logger = logger
	logger.Info().Str("env", cfg.Env).Msg("🚀 Starting draw-agent backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Canvas State, Scheduler and Relay ────
	canvasRepo := repository.NewCanvasRepo()
	sched := scheduler.New(logger.With().Str("component", "scheduler").Logger())

	hub := relay.NewHub(canvasRepo, cfg.CORSOrigin, logger.With().Str("component", "relay").Logger())
	hub.OnDisconnect(func(clientID uuid.UUID) {
		if sched.Cancel(clientID.String()) {
			logger.Debug().Str("client_id", clientID.String()).Msg("cancelled pending animation")
		}
	})
	logger.Info().Msg("✓ Relay hub started")

	// ──── Step 3: Initialize Completion Provider ────
	var completer services.Completer
	if cfg.HasCredential() {
		switch cfg.AIProvider {
		case config.ProviderGemini:
			gemini, err := services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				logger.Fatal().Err(err).Msg("✗ Gemini client initialization failed")
			}
			defer gemini.Close()
			completer = gemini
		default:
			completer = services.NewGroqCompleter(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqVisionModel, cfg.GroqTestModel)
		}
		completer = services.NewBreakerCompleter(completer, cfg.BreakerMaxFailures, cfg.BreakerTimeout, logger)
		logger.Info().Str("provider", cfg.AIProvider).Msg("✓ Completion provider initialized")
	} else {
		logger.Warn().Str("env", cfg.APIKeyEnv()).Msg("⚠ No API key configured, /api/ai/solve will fail until it is set")
	}

	// ──── Step 4: Initialize Services and Handlers ────
	canvasService := services.NewCanvasService(canvasRepo, hub, logger)
	solverService := services.NewSolverService(completer, sched, canvasService, services.SolverOptions{
		Provider:     cfg.AIProvider,
		KeyEnv:       cfg.APIKeyEnv(),
		MaxImageEdge: cfg.MaxImageEdge,
	}, logger)

	aiHandler := handlers.NewAIHandler(solverService, logger)
	canvasHandler := handlers.NewCanvasHandler(canvasService, logger)
	healthHandler := handlers.NewHealthHandler(cfg.AIProvider, solverService.Configured(), hub)
	aiLimiter := middleware.NewRateLimiter(cfg.AIRatePerMinute, cfg.AIRateBurst)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(aiHandler, canvasHandler, healthHandler, aiLimiter, hub, cfg.CORSOrigin, logger)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Solve waits on the model.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()

		logger.Info().Msg("Shutting down...")

		// In-flight solves may still schedule animations, so drain them first.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}

		if n := sched.Stop(); n > 0 {
			logger.Info().Int("jobs", n).Msg("cancelled pending animations")
		}
		hub.Close()
	}()

	logger.Info().Msgf("✓ draw-agent ready on http://localhost:%s", cfg.Port)
	logger.Info().Msgf("  API: http://localhost:%s/api", cfg.Port)
	logger.Info().Msgf("  WS:  ws://localhost:%s/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
	<-drained
	logger.Info().Msg("Server stopped")
}

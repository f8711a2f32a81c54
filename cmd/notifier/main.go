package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"visionpulse-notifier-go/internal/api"
	"visionpulse-notifier-go/internal/config"
	"visionpulse-notifier-go/internal/logging"
	"visionpulse-notifier-go/internal/services"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Optional embedded Logdy web log viewer
	if cfg.LogdyEnabled {
		if writer, url, err := logging.StartLogdy(cfg); err == nil {
			console := zerolog.ConsoleWriter{Out: os.Stderr}
			log.Logger = log.Output(io.MultiWriter(console, writer))
			log.Info().Str("url", url).Msg("Logs teed to Logdy")
		} else {
			log.Warn().Err(err).Msg("Logdy startup failed, console logging only")
		}
	}

	log.Info().
		Str("notifier_id", cfg.NotifierID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("backend_url", cfg.BackendURL).
		Int("port", cfg.Port).
		Bool("capture_enabled", cfg.CaptureEnabled).
		Msg("Starting VisionPulse Notifier")

	// Wire the service graph
	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create services")
	}

	// Connect the alert feed
	if err := container.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect alert feed")
	}

	// Create API server
	apiServer := api.NewServer(cfg, container.Engine, container.Relay, container.Session, container.Player)
	if err := apiServer.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup API server")
	}

	// Start API server in background
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("API server stopped")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Stop(); err != nil {
		log.Error().Err(err).Msg("API server forced to shutdown")
	}

	if err := container.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Service shutdown incomplete")
	} else {
		log.Info().Msg("Shutdown complete")
	}
}

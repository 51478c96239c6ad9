package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/course-portal/internal/api"
	"github.com/course-portal/internal/app"
	"github.com/course-portal/internal/config"
	"github.com/course-portal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", "json")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger, pretty console output in development
	format := cfg.Log.Format
	if cfg.IsDevelopment() {
		format = "pretty"
	}
	log := logger.New(cfg.Log.Level, format)
	log.Info().Msg("Starting course portal server...")

	// Wire storage, repositories and services
	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	// Carry over visibility markers from older deployments
	if n, err := a.Services.File.ImportLegacyFlags(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to import legacy public flags")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("Imported legacy public flags")
	}

	// Initialize router
	router := api.NewRouter(a.Services, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

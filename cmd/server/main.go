package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nazm-contest-api/internal/api"
	"github.com/nazm-contest-api/internal/config"
	"github.com/nazm-contest-api/internal/database"
	"github.com/nazm-contest-api/internal/identity"
	"github.com/nazm-contest-api/internal/repository"
	"github.com/nazm-contest-api/internal/service"
	"github.com/nazm-contest-api/internal/storage"
	"github.com/nazm-contest-api/pkg/logger"
)

func main() {
	// Load configuration first so the logger honours LOG_LEVEL and LOG_FORMAT
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateAuth()
	}
	if err != nil {
		log := logger.New("info", "json")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting contest review server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Server.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	repos := repository.New(db)

	blobs, err := storage.NewDiskStore(cfg.Upload.UploadDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open upload directory")
	}

	services := service.NewServices(repos, blobs, cfg, log)
	resolver := identity.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	router := api.NewRouter(services, resolver, db, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

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

	stats := db.Stats()
	log.Info().
		Int("open_connections", stats.OpenConnections).
		Int64("wait_count", stats.WaitCount).
		Msg("Server exited gracefully")
}

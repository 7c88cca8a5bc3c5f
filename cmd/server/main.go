// Command server runs the posts HTTP API.
//
// Startup order: environment (.env, then config file and env vars), logging,
// tracing, storage (open, probe, migrate), HTTP server. SIGINT/SIGTERM drain
// in-flight requests before the storage pool is released.
//
// @title       Posts API
// @version     1.0
// @description CRUD and search over blog posts with a uniform JSON error envelope.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-posts-backend/internal/config"
	httpapi "github.com/tbourn/go-posts-backend/internal/http"
	"github.com/tbourn/go-posts-backend/internal/observability"
	"github.com/tbourn/go-posts-backend/internal/repo"
	"github.com/tbourn/go-posts-backend/internal/sysutil"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg, os.Stderr)
	version := sysutil.Version()

	ctx := context.Background()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("failed to open database")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Fatal().Err(err).Msg("failed to instrument database")
		}
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	err = repo.Ping(pingCtx, db)
	cancelPing()
	if err != nil {
		log.Fatal().Err(err).Str("class", repo.Classify(err).String()).Msg("database unreachable")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("mode", string(cfg.Mode)).
			Str("driver", cfg.DB.Driver).
			Str("base_path", cfg.APIBasePath).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown error")
	}
	if err := repo.Close(db); err != nil {
		log.Error().Err(err).Msg("database close error")
	}
	log.Info().Msg("server shutdown complete")
}

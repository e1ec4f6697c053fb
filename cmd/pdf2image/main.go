package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"pdf2image/internal/config"
	"pdf2image/internal/http/server"
	"pdf2image/internal/infra/archive"
	"pdf2image/internal/infra/logging"
	"pdf2image/internal/infra/tokens"
)

func main() {
	// Local overrides; missing .env is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	var rdb *redis.Client
	if cfg.Cache.RedisHost != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.ImageCacheDB,
		})
	}

	idleConnsClosed := make(chan struct{})
	if cfg.Auth.Postgres.Host != "" {
		if err := tokens.Load(cfg.Auth.Postgres); err != nil {
			logging.Error("Failed to load API tokens", "error", err)
		}
		go tokens.RefreshPeriodically(cfg.Auth.Postgres, time.Minute, idleConnsClosed)
	}

	var store *archive.Store
	if cfg.Archive.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s, err := archive.New(ctx, cfg.Archive)
		cancel()
		if err != nil {
			logging.Error("Archive init failed, continuing without archive", "error", err)
		} else {
			store = s
		}
	}

	app := server.New(server.Deps{Config: cfg, Redis: rdb, Archive: store})

	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

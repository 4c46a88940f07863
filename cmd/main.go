package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"

	"movie-mood-service/internal/blobstore"
	"movie-mood-service/internal/config"
	"movie-mood-service/internal/database"
	"movie-mood-service/internal/handler"
	"movie-mood-service/internal/middleware"
	"movie-mood-service/internal/service"
	"movie-mood-service/internal/storage"
	"movie-mood-service/internal/validation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx := context.Background()

	// Durable object store (non-fatal if unavailable)
	durable, reason, closeStore := openDurableStore(ctx, cfg)
	defer closeStore()

	store := storage.New(ctx, durable, storage.Options{
		Timeout:           cfg.Blob.Timeout,
		FetchConcurrency:  cfg.Blob.FetchConcurrency,
		BreakerFailures:   cfg.Blob.BreakerFailures,
		BreakerCooldown:   cfg.Blob.BreakerCooldown,
		UnavailableReason: reason,
	})

	// Redis for rate limiting (non-fatal if unavailable)
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without rate limiting", "error", err)
	} else {
		defer rdb.Close()
	}

	// Initialize layers
	v := validation.New()
	movieSvc := service.NewMovieService(store)
	authSvc := service.NewAuthService(cfg.Auth)

	app := handler.NewApp()
	app.Use(logger.New())

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, swaggerYAML)
	}

	handler.RegisterRoutes(app, handler.Routes{
		Movies:    handler.NewMovieHandler(movieSvc, v),
		Status:    handler.NewStatusHandler(movieSvc),
		Auth:      handler.NewAuthHandler(authSvc, v),
		AdminAuth: middleware.AdminAuth(authSvc),
		VoteLimit: rateLimit(rdb, cfg.RateLimit),
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down movie mood service...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting movie mood service", "addr", addr, "backend", cfg.Blob.Backend)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openDurableStore connects the configured backend. A nil store comes with
// the reason it is unavailable.
func openDurableStore(ctx context.Context, cfg *config.Config) (blobstore.ObjectStore, string, func()) {
	noop := func() {}

	if cfg.Blob.Backend == config.BackendMemory {
		return nil, "BLOB_BACKEND is memory", noop
	}
	if !cfg.Blob.Durable() {
		slog.Warn("BLOB_READ_WRITE_TOKEN not set, durable storage disabled", "backend", cfg.Blob.Backend)
		return nil, "BLOB_READ_WRITE_TOKEN not set", noop
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Blob.Timeout)
	defer cancel()

	switch cfg.Blob.Backend {
	case config.BackendRedis:
		client, err := database.NewRedis(connectCtx, cfg.Redis)
		if err != nil {
			slog.Warn("durable Redis store unavailable", "error", err)
			return nil, err.Error(), noop
		}
		return blobstore.NewRedisStore(client), "", func() { _ = client.Close() }

	case config.BackendPostgres:
		db, err := database.NewPostgres(connectCtx, cfg.DB)
		if err != nil {
			slog.Warn("durable PostgreSQL store unavailable", "error", err)
			return nil, err.Error(), noop
		}
		return blobstore.NewPostgresStore(db), "", func() { _ = db.Close() }

	case config.BackendBadger:
		db, err := database.NewBadger(cfg.Badger)
		if err != nil {
			slog.Warn("durable Badger store unavailable", "error", err)
			return nil, err.Error(), noop
		}
		return blobstore.NewBadgerStore(db), "", func() { _ = db.Close() }
	}

	return nil, fmt.Sprintf("unsupported backend %q", cfg.Blob.Backend), noop
}

func rateLimit(rdb *redis.Client, cfg config.RateLimitConfig) fiber.Handler {
	if rdb == nil {
		return nil
	}
	return middleware.NewRateLimiter(rdb, "interactions", cfg.Max, cfg.WindowSeconds).Handler()
}

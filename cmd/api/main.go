package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/timi/timi-go/internal/config"
	"github.com/timi/timi-go/internal/crypto"
	"github.com/timi/timi-go/internal/handler"
	"github.com/timi/timi-go/internal/middleware"
	"github.com/timi/timi-go/internal/repository"
	"github.com/timi/timi-go/internal/service"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "password123"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	users, tasks, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher, err := crypto.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens := crypto.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL())

	authService := service.NewAuthService(users, hasher, tokens, logger)
	taskService := service.NewTaskService(tasks, logger)

	if cfg.SeedDemoUser {
		created, err := authService.SeedUser(ctx, demoEmail, demoPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("demo user created", "email", demoEmail)
		}
	}

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.RouterConfig{
			Auth:        authService,
			Tasks:       taskService,
			Logger:      logger,
			CORSOrigins: cfg.CORSAllowedOrigins,
			RateLimit:   limiter.Handler,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env, "database", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// openStores returns the user and task stores for the configured driver and a func that
// releases them.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (service.UserStore, service.TaskStore, func(), error) {
	if cfg.DatabaseDriver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		store := repository.NewMemoryStore()
		return store.Users(), store.Tasks(), func() {}, nil
	}

	db, err := repository.NewDB(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.DatabaseAutoMigrate {
		if err := repository.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}
	return repository.NewUserRepository(db), repository.NewTaskRepository(db), closeDB, nil
}

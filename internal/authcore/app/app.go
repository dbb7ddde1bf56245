// Package app wires configuration, storage, services and the HTTP server
// into a runnable auth service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/swiftmeds/authcore/internal/authcore/http"
	"github.com/swiftmeds/authcore/internal/authcore/service"
	"github.com/swiftmeds/authcore/internal/authcore/store"
	"github.com/swiftmeds/authcore/internal/authcore/store/drivers/sqlite"
	"github.com/swiftmeds/authcore/pkg/cryptox"
	"github.com/swiftmeds/authcore/pkg/httpx"
	"github.com/swiftmeds/authcore/pkg/jwtx"
	"github.com/swiftmeds/authcore/pkg/slogx"

	"github.com/redis/go-redis/v9"
)

const BuildVersion = "v0.1.0"

// Application holds the assembled auth service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	tokenService        *service.TokenService
	authService         *service.AuthService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if cfg.Secret == "" {
		return nil, errors.New("app: AUTH_SECRET is required")
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authcore",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepper(cfg.Pepper)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested or the
// server fails.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("authcore starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping (which runs a
// final prune) and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authcore...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("authcore stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Codec: jwtx.NewCodec(app.cfg.Secret, app.cfg.AccessTTL, app.cfg.RefreshTTL),
		Store: app.db,
	}
	app.authService = &service.AuthService{
		Store:  app.db,
		Tokens: app.tokenService,
	}
	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// rateLimitStore picks the throttle backend. A single instance serves all
// endpoint classes; keys are namespaced per class.
func (app *Application) rateLimitStore() (httpx.RateLimitStore, error) {
	switch app.cfg.RateLimitStore {
	case "", "local":
		return httpx.NewLocalRateLimitStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		app.logger.Info("using redis rate limit store", "addr", app.cfg.RedisAddr)
		return httpx.NewRedisRateLimitStore(client, "authcore:ratelimit"), nil
	default:
		return nil, fmt.Errorf("app: unknown rate limit store %q", app.cfg.RateLimitStore)
	}
}

func (app *Application) initHTTP() error {
	limitStore, err := app.rateLimitStore()
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(app.logger, httpapi.RateLimits{
		Login:    app.cfg.LoginLimit,
		Register: app.cfg.RegisterLimit,
		Reset:    app.cfg.ResetLimit,
		General:  app.cfg.GeneralLimit,
	}, limitStore)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

// Package main implements the entry point for the vigil background agent,
// which fronts an application's HTTP fetches with tiered caching, manages
// push-token lifecycle, and renders and routes push notifications.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/phrazzld/vigil/internal/api"
	"github.com/phrazzld/vigil/internal/cache"
	"github.com/phrazzld/vigil/internal/config"
	"github.com/phrazzld/vigil/internal/events"
	"github.com/phrazzld/vigil/internal/intercept"
	"github.com/phrazzld/vigil/internal/notify"
	"github.com/phrazzld/vigil/internal/platform/logger"
	"github.com/phrazzld/vigil/internal/platform/postgres"
	"github.com/phrazzld/vigil/internal/platform/provider"
	"github.com/phrazzld/vigil/internal/platform/sqlite"
	"github.com/phrazzld/vigil/internal/supervisor"
	"github.com/phrazzld/vigil/internal/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("agent failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("agent starting",
		"port", cfg.Server.Port,
		"version", cfg.Agent.Version)

	ctx := context.Background()

	// Push-token system of record.
	db, err := setupDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := runMigrations(db, appLogger); err != nil {
		return err
	}

	// Agent-local durable store for cache entries and liveness metadata.
	localStore, err := sqlite.Open(ctx, cfg.Agent.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open agent store: %w", err)
	}
	defer func() { _ = localStore.Close() }()

	providerClient := provider.New(cfg.Push, appLogger)
	tokenStore := postgres.NewPostgresTokenStore(db)

	caches := cache.NewManager(localStore, cfg.Agent.Version, appLogger)
	for _, p := range intercept.DefaultPartitions() {
		if err := caches.Register(p); err != nil {
			return fmt.Errorf("failed to register partition %s: %w", p.Name, err)
		}
	}

	sup := supervisor.New(localStore, providerClient, caches, supervisor.Config{
		DormancyThreshold:  cfg.Supervisor.DormancyThreshold,
		RevalidateInterval: cfg.Supervisor.RevalidateInterval,
	}, appLogger)

	if err := sup.Activate(ctx); err != nil {
		return fmt.Errorf("activation failed: %w", err)
	}
	sup.Start()
	defer sup.Stop()

	tokens := token.NewManager(
		configCapabilities{cfg: cfg.Push},
		grantedPermissions{},
		providerClient,
		providerReadiness{client: providerClient},
		tokenStore,
		localStore,
		token.Fingerprint(cfg.Agent.StorePath),
		appLogger,
		token.WithRetryPolicy(token.RetryPolicy{
			MaxRetries:     cfg.Push.MaxRetries,
			BaseDelay:      cfg.Push.RetryDelay,
			AttemptTimeout: cfg.Push.FetchTimeout,
		}),
	)

	dispatcher := notify.NewDispatcher(tokenStore, providerClient, nil, appLogger)
	presenter := notify.NewPresenter(
		logRenderer{logger: appLogger},
		logWindowClient{logger: appLogger},
		nil,
		cfg.Server.Origin,
		appLogger,
	)

	emitter := events.NewInMemoryEventEmitter(appLogger)
	emitter.RegisterHandler(notify.NewEventBridge(dispatcher, sup.Touch, appLogger))

	transport := intercept.New(
		http.DefaultTransport,
		caches,
		cfg.Cache.Denylist,
		appLogger,
		intercept.WithActivityCallback(sup.Touch),
		intercept.WithOfflinePage(loadOfflinePage(cfg.Cache.OfflinePagePath, appLogger)),
	)
	fetchClient := &http.Client{Transport: transport}

	router := api.NewRouter(api.Handlers{
		Messages: api.NewMessageHandler(sup, caches, appLogger),
		Tokens:   api.NewTokenHandler(tokens, appLogger),
		Dispatch: api.NewDispatchHandler(dispatcher, appLogger),
		Events:   api.NewEventHandler(emitter, appLogger),
		Push:     api.NewPushHandler(presenter, sup.Touch, appLogger),
		Fetch:    api.NewFetchHandler(fetchClient, appLogger),
	})

	return serve(cfg, router, appLogger)
}

// setupDatabase establishes the token database connection and configures
// the connection pool.
func setupDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// loadOfflinePage reads the offline fallback document. A missing page is
// tolerated; navigation failures then surface as network errors.
func loadOfflinePage(path string, logger *slog.Logger) []byte {
	page, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("offline page unavailable", "path", path, "error", err)
		return nil
	}
	return page
}

// serve runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully.
func serve(cfg *config.Config, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-shutdownCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the bggcache server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"bggcache/config"
	"bggcache/internal/bgg"
	"bggcache/internal/gamecache"
	"bggcache/internal/listcache"
	"bggcache/internal/refresh"
	"bggcache/internal/selector"
	"bggcache/internal/server"
	"bggcache/internal/storage"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config      *config.Config
	games       *gamecache.Result
	gameCache   *gamecache.Cache
	lists       *listcache.Cache
	refresher   *refresh.Refresher
	stopRefresh func()
	server      *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is required")
	}

	app := &App{config: cfg}

	games, err := gamecache.New(ctx, StorageConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize game cache: %w", err)
	}
	app.games = games
	app.gameCache = gamecache.NewCache(games.Store)

	lists, err := listcache.New(listcache.Config{
		Type:      cfg.ListCache.Type,
		LocalPath: cfg.ListCache.Path,
		Redis: listcache.RedisConfig{
			URL:       cfg.ListCache.RedisURL,
			KeyPrefix: cfg.ListCache.RedisKeyPrefix,
		},
		TTL: cfg.ListCache.TTL.Std(),
	})
	if err != nil {
		closeErr := app.games.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to initialize list cache: %w (also: game cache close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize list cache: %w", err)
	}
	app.lists = lists

	bggCfg := bgg.Config{
		BaseURL:       cfg.BGG.BaseURL,
		LegacyBaseURL: cfg.BGG.LegacyBaseURL,
		Token:         cfg.BGG.APIToken,
		MaxRetries:    cfg.BGG.MaxRetries,
		RetryDelay:    cfg.BGG.RetryDelay.Std(),
		Timeout:       cfg.BGG.Timeout.Std(),
	}
	upstream := bgg.NewClient(bggCfg)
	loader := selector.NewLoader(app.gameCache, upstream)

	app.refresher = refresh.New(app.gameCache, loader, refresh.Config{
		Threshold: cfg.GameCache.TTL.Std(),
		BatchSize: cfg.Refresh.BatchSize,
	})
	if cfg.Refresh.Enabled && cfg.Refresh.Interval > 0 {
		app.stopRefresh = app.refresher.Start(cfg.Refresh.Interval.Std())
	}

	factory := selector.NewFactory(loader, lists, upstream, bgg.NewLegacyClient(bggCfg))
	app.server = server.New(factory, app.gameCache, &server.Config{
		MetricsEnabled:   cfg.Metrics.Enabled,
		MetricsEndpoint:  cfg.Metrics.Endpoint,
		CORSAllowOrigins: cfg.Server.CORSAllowOrigins,
		Storage:          games,
	})

	app.logStartupInfo()
	return app, nil
}

// StorageConfig maps the storage section of the application config.
func StorageConfig(cfg config.StorageConfig) storage.Config {
	return storage.Config{
		Type: cfg.Type,
		SQLite: storage.SQLiteConfig{
			Path: cfg.SQLitePath,
		},
		PostgreSQL: storage.PostgreSQLConfig{
			URL:      cfg.PostgresURL,
			MaxConns: cfg.PostgresMaxConns,
		},
		MongoDB: storage.MongoDBConfig{
			URL:      cfg.MongoDBURL,
			Database: cfg.MongoDBDatabase,
		},
	}
}

// Handler returns the HTTP handler serving the gateway routes.
func (a *App) Handler() http.Handler {
	return a.server
}

// Refresher returns the stale game refresher.
func (a *App) Refresher() *refresh.Refresher {
	return a.refresher
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown via server.Shutdown(ctx), honoring the passed context timeout/cancellation.
// 2. Refresher stop (waits for an in-flight sweep).
// 3. List cache close.
// 4. Game store close, then the storage connection it owns.
//
// Shutdown is idempotent and safe for repeated calls; after the first call, subsequent calls are no-ops.
// It attempts every close step, aggregates failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Shutdown HTTP server first (stop accepting new requests)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Stop background refresh
	if a.stopRefresh != nil {
		a.stopRefresh()
	}

	// 3. Close list cache
	if a.lists != nil {
		if err := a.lists.Close(); err != nil {
			slog.Error("list cache close error", "error", err)
			errs = append(errs, fmt.Errorf("list cache close: %w", err))
		}
	}

	// 4. Close game store and storage
	if a.games != nil {
		if err := a.games.Close(); err != nil {
			slog.Error("game cache close error", "error", err)
			errs = append(errs, fmt.Errorf("game cache close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("storage configured", "type", cfg.Storage.Type)
	slog.Info("list cache configured", "type", cfg.ListCache.Type, "ttl", cfg.ListCache.TTL.Std())

	if a.stopRefresh != nil {
		slog.Info("background refresh enabled",
			"interval", cfg.Refresh.Interval.Std(),
			"threshold", cfg.GameCache.TTL.Std(),
			"batch_size", cfg.Refresh.BatchSize,
		)
	} else {
		slog.Info("background refresh disabled")
	}

	if cfg.BGG.APIToken == "" {
		slog.Warn("BGG_API_TOKEN not set - upstream requests are unauthenticated")
	}
}

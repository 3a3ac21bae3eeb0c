// Package main is the entry point for the board-game caching gateway.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bggcache/config"
	"bggcache/internal/app"
	"bggcache/internal/logging"
)

func main() {
	refreshOnce := flag.Bool("refresh", false, "Refresh stale cached games once and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger, err := logging.New(cfg.Logging.Format, cfg.Logging.Level, os.Stdout)
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	slog.Info("starting bggcache", "storage", cfg.Storage.Type, "list_cache", cfg.ListCache.Type)

	if *refreshOnce {
		// a one-off sweep must not race the background ticker
		cfg.Refresh.Enabled = false
	}

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if *refreshOnce {
		summary := application.Refresher().RefreshStaleGames(context.Background())
		slog.Info("refresh complete", "stale", summary.Stale, "refreshed", summary.Refreshed, "failed", summary.Failed)
		if err := application.Shutdown(context.Background()); err != nil {
			slog.Error("shutdown error", "error", err)
			os.Exit(1)
		}
		return
	}

	// Handle graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-stopped
}

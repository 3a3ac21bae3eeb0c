// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bggcache/internal/core"
	"bggcache/internal/fields"
	"bggcache/internal/filter"
)

// HTTP header names not exported by echo v4.
const (
	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MetricsEnabled   bool     // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint  string   // HTTP path for metrics endpoint (default: /metrics)
	CORSAllowOrigins []string // Allowed CORS origins (default: *)

	// Storage, when set, is pinged by /health.
	Storage Pinger
}

// New creates a new HTTP server
func New(selectors SelectorFactory, status StatusSource, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(selectors, status)
	if cfg != nil {
		handler.storage = cfg.Storage
	}

	// Global middleware stack (order matters)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(core.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	origins := []string{"*"}
	if cfg != nil && len(cfg.CORSAllowOrigins) > 0 {
		origins = cfg.CORSAllowOrigins
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{
			headerIfNoneMatch,
			filter.HeaderPlayerCount,
			filter.HeaderUseRecommended,
			filter.HeaderMinDuration,
			filter.HeaderMaxDuration,
			filter.HeaderMaxComplexity,
			filter.HeaderIncludeExpansions,
			filter.HeaderMechanics,
			filter.HeaderMinRating,
			fields.Header,
		},
		ExposeHeaders: []string{headerETag, echo.HeaderXRequestID},
	}))

	// Public routes
	e.GET("/health", handler.Health)
	if cfg != nil && cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal attacks
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	// API routes
	e.GET("/collection/:usernames", handler.Collection)
	e.GET("/geeklist/:lists", handler.GeekList)
	e.GET("/search/:name", handler.Search)
	e.GET("/cache/status", handler.CacheStatus)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/labstack/echo/v4"

	"bggcache/internal/core"
	"bggcache/internal/fields"
	"bggcache/internal/filter"
	"bggcache/internal/selector"
)

// SelectorFactory builds the per-request selectors.
type SelectorFactory interface {
	PlayerSelector(usernames string, reduction fields.Reduction) *selector.Selector
	GeekListSelector(listIDs string, reduction fields.Reduction) *selector.Selector
	Search() *selector.Search
}

// StatusSource reports when the game cache was last written.
type StatusSource interface {
	LastRefresh(ctx context.Context) (time.Time, bool)
}

// Pinger checks that a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthPingTimeout = 2 * time.Second

// Handler holds the HTTP handlers
type Handler struct {
	selectors SelectorFactory
	status    StatusSource
	storage   Pinger
}

// NewHandler creates a new handler
func NewHandler(selectors SelectorFactory, status StatusSource) *Handler {
	return &Handler{
		selectors: selectors,
		status:    status,
	}
}

// Collection handles GET /collection/:usernames
func (h *Handler) Collection(c echo.Context) error {
	return h.selectGames(c, h.selectors.PlayerSelector(param(c, "usernames"), fields.FromHeader(c.Request().Header)))
}

// GeekList handles GET /geeklist/:lists
func (h *Handler) GeekList(c echo.Context) error {
	return h.selectGames(c, h.selectors.GeekListSelector(param(c, "lists"), fields.FromHeader(c.Request().Header)))
}

func (h *Handler) selectGames(c echo.Context, sel *selector.Selector) error {
	chain, err := filter.FromHeaders(c.Request().Header)
	if err != nil {
		return handleError(c, err)
	}

	games, err := sel.GamesMatchingFilter(c.Request().Context(), chain)
	if err != nil {
		return handleError(c, err)
	}
	return writeJSON(c, games)
}

// Search handles GET /search/:name
func (h *Handler) Search(c echo.Context) error {
	results, err := h.selectors.Search().SearchForGame(c.Request().Context(), param(c, "name"))
	if err != nil {
		return handleError(c, err)
	}
	return writeJSON(c, results)
}

type cacheStatus struct {
	LastRefresh *time.Time `json:"last_refresh"`
}

// CacheStatus handles GET /cache/status
func (h *Handler) CacheStatus(c echo.Context) error {
	var status cacheStatus
	if ts, ok := h.status.LastRefresh(c.Request().Context()); ok {
		ts = ts.UTC()
		status.LastRefresh = &ts
	}
	return c.JSON(http.StatusOK, status)
}

// Health handles GET /health. It answers 503 when the game cache database
// does not respond.
func (h *Handler) Health(c echo.Context) error {
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			core.Logger(ctx).Warn("storage health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "storage": "unreachable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func param(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// writeJSON sends v with a weak ETag and answers a matching If-None-Match
// with 304.
func writeJSON(c echo.Context, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return handleError(c, fmt.Errorf("marshal response: %w", err))
	}

	etag := fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(body))
	c.Response().Header().Set(headerETag, etag)
	if etagMatches(c.Request().Header.Get(headerIfNoneMatch), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSONBlob(http.StatusOK, body)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag || "W/"+candidate == etag {
			return true
		}
	}
	return false
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		if gatewayErr.HTTPStatusCode() >= http.StatusInternalServerError {
			core.Logger(c.Request().Context()).Error("request failed", "error", err)
		}
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	core.Logger(c.Request().Context()).Error("unexpected error", "error", err)

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}

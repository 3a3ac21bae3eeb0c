// Package bgg is the client for the BoardGameGeek XML APIs: the v2 API for
// things, collections and search, and the legacy v1 API for geek-lists.
package bgg

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bggcache/internal/core"
	"bggcache/internal/httpclient"
)

// ErrNotFound is returned when the API reports an unknown user or object.
var ErrNotFound = core.ErrUpstreamNotFound

const (
	// DefaultBaseURL is the XML API v2 endpoint.
	DefaultBaseURL = "https://boardgamegeek.com/xmlapi2"
	// DefaultLegacyBaseURL is the XML API v1 endpoint that still serves geek-lists.
	DefaultLegacyBaseURL = "https://boardgamegeek.com/xmlapi"

	defaultRetryDelay = 10 * time.Second
	userAgent         = "bggcache/1.0"
)

var upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bggcache_upstream_requests_total",
	Help: "Total number of HTTP requests made to the board-game API, by endpoint and status",
}, []string{"endpoint", "status"})

// Config configures the API clients.
type Config struct {
	BaseURL       string
	LegacyBaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is multiplied by the attempt number between retries.
	RetryDelay time.Duration
	// Timeout bounds a single HTTP request. Ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// requester performs GETs with bounded retries on network errors, queued
// (202) responses, 429 and 5xx.
type requester struct {
	httpClient *http.Client
	token      string
	maxRetries int
	retryDelay time.Duration
	sleep      sleepFunc
}

func newRequester(cfg Config) *requester {
	client := cfg.HTTPClient
	if client == nil {
		hc := httpclient.DefaultConfig()
		if cfg.Timeout > 0 {
			hc.Timeout = cfg.Timeout
		}
		hc.DisableCompression = true
		client = httpclient.NewHTTPClient(&hc)
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &requester{
		httpClient: client,
		token:      cfg.Token,
		maxRetries: maxRetries,
		retryDelay: delay,
		sleep:      sleepContext,
	}
}

type attemptResult struct {
	status int
	body   []byte
}

// get fetches rawURL and returns the decoded body of a 200 response.
func (r *requester) get(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	var (
		lastErr    error
		lastStatus int
	)

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * r.retryDelay
			core.Logger(ctx).Warn("board game API retry",
				"endpoint", endpoint, "attempt", attempt, "max_retries", r.maxRetries,
				"delay", delay, "status", lastStatus, "error", lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		res, err := r.do(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			upstreamRequests.WithLabelValues(endpoint, "error").Inc()
			lastErr, lastStatus = err, 0
			continue
		}
		upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(res.status)).Inc()

		switch {
		case res.status == http.StatusOK:
			return res.body, nil
		case res.status == http.StatusAccepted,
			res.status == http.StatusTooManyRequests,
			res.status >= 500:
			lastErr, lastStatus = fmt.Errorf("status %d", res.status), res.status
			continue
		case res.status == http.StatusNotFound:
			return nil, fmt.Errorf("%s: %w", endpoint, ErrNotFound)
		default:
			return nil, core.NewUpstreamError(http.StatusBadGateway,
				fmt.Sprintf("board game API returned status %d", res.status), nil)
		}
	}

	slog.Warn("board game API retries exhausted", "endpoint", endpoint, "status", lastStatus, "error", lastErr)
	switch lastStatus {
	case http.StatusTooManyRequests:
		return nil, core.NewRateLimitError("board game API rate limit exceeded")
	case http.StatusAccepted:
		return nil, core.NewUpstreamError(http.StatusBadGateway, "board game API request still queued after retries", lastErr)
	default:
		return nil, core.NewUpstreamError(http.StatusBadGateway, "board game API request failed after retries", lastErr)
	}
}

func (r *requester) do(ctx context.Context, rawURL string) (*attemptResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("Accept-Encoding", "br, gzip")
	req.Header.Set("User-Agent", userAgent)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &attemptResult{status: resp.StatusCode, body: body}, nil
}

func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

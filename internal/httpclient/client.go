// Package httpclient builds the tuned *http.Client used for upstream calls.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bggcache_upstream_requests_total",
		Help: "Total number of HTTP requests sent to the board game API, by status code",
	}, []string{"code"})
	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bggcache_upstream_request_duration_seconds",
		Help:    "Board game API response time",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"code"})
)

// ClientConfig tunes the transport and timeouts of the upstream client.
type ClientConfig struct {
	// MaxIdleConnsPerHost controls the maximum idle (keep-alive) connections to keep per-host
	MaxIdleConnsPerHost int

	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration

	// Timeout bounds a single request, connect through body read
	Timeout time.Duration

	// DisableCompression stops the transport from negotiating gzip on its own.
	// Set when the caller sends Accept-Encoding and decodes bodies itself.
	DisableCompression bool

	// Uninstrumented skips the request counter and latency histogram.
	Uninstrumented bool
}

// DefaultConfig returns a ClientConfig suited to the board-game API, which is
// slow to answer large batch requests.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		Timeout:             60 * time.Second,
		DialTimeout:         15 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewHTTPClient builds a client from config, or from DefaultConfig when
// config is nil.
func NewHTTPClient(config *ClientConfig) *http.Client {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		DisableCompression:    cfg.DisableCompression,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: time.Second,
	}
	if !cfg.Uninstrumented {
		rt = Instrument(rt)
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
	}
}

// Instrument wraps next so every round trip is counted and timed by status
// code. Transport errors are not counted.
func Instrument(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(upstreamRequests,
		promhttp.InstrumentRoundTripperDuration(upstreamDuration, next))
}

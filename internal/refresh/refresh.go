// Package refresh re-fetches game records whose cache entries have gone
// stale, on demand or on a fixed interval.
package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bggcache/internal/core"
)

const (
	// DefaultThreshold is the age after which a cached game is refreshed.
	DefaultThreshold = 7 * 24 * time.Hour
	// DefaultBatchSize is how many stale ids are fetched per upstream call.
	DefaultBatchSize = 20
	// DefaultTimeout bounds one background sweep.
	DefaultTimeout = 30 * time.Minute
)

var (
	refreshRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bggcache_refresh_runs_total",
		Help: "Total number of stale game sweeps started",
	})
	refreshedGames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bggcache_refresh_games_total",
		Help: "Total number of stale games re-fetched and re-cached",
	})
	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bggcache_refresh_failures_total",
		Help: "Total number of stale games that could not be re-fetched",
	})
)

// StaleSource lists cached ids older than a threshold.
type StaleSource interface {
	LoadStale(ctx context.Context, threshold time.Duration) []int
}

// Refetcher loads games, bypassing the cache when asked, and writes them back.
type Refetcher interface {
	Load(ctx context.Context, ids []int, bypassCache bool) ([]core.Game, error)
}

// Config tunes a Refresher. Zero values use the package defaults.
type Config struct {
	Threshold time.Duration
	BatchSize int
	Timeout   time.Duration
}

// Summary describes one sweep.
type Summary struct {
	Stale     int
	Refreshed int
	Failed    int
	Skipped   bool
}

// Refresher sweeps stale game records. Only one sweep runs at a time.
type Refresher struct {
	cache     StaleSource
	loader    Refetcher
	threshold time.Duration
	batchSize int
	timeout   time.Duration
	running   atomic.Bool
}

// New creates a Refresher.
func New(cache StaleSource, loader Refetcher, cfg Config) *Refresher {
	r := &Refresher{
		cache:     cache,
		loader:    loader,
		threshold: cfg.Threshold,
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
	}
	if r.threshold <= 0 {
		r.threshold = DefaultThreshold
	}
	if r.batchSize <= 0 {
		r.batchSize = DefaultBatchSize
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	return r
}

// RefreshStaleGames force-fetches every game older than the threshold and
// overwrites its cache entry. A failing batch is retried one id at a time;
// ids that still fail are logged and skipped so the rest of the sweep
// completes. Ids the upstream no longer returns count as failed.
func (r *Refresher) RefreshStaleGames(ctx context.Context) Summary {
	log := core.Logger(ctx)
	if !r.running.CompareAndSwap(false, true) {
		log.Info("stale game refresh already running, skipping")
		return Summary{Skipped: true}
	}
	defer r.running.Store(false)

	refreshRuns.Inc()
	start := time.Now()

	stale := r.cache.LoadStale(ctx, r.threshold)
	summary := Summary{Stale: len(stale)}
	if len(stale) == 0 {
		log.Debug("no stale games to refresh")
		return summary
	}

	for begin := 0; begin < len(stale); begin += r.batchSize {
		if ctx.Err() != nil {
			log.Warn("stale game refresh interrupted", "error", ctx.Err(), "remaining", len(stale)-begin)
			summary.Failed += len(stale) - begin
			break
		}
		end := min(begin+r.batchSize, len(stale))
		refreshed, failed := r.refreshBatch(ctx, stale[begin:end])
		summary.Refreshed += refreshed
		summary.Failed += failed
	}

	refreshedGames.Add(float64(summary.Refreshed))
	refreshFailures.Add(float64(summary.Failed))
	log.Info("stale game refresh finished",
		"stale", summary.Stale,
		"refreshed", summary.Refreshed,
		"failed", summary.Failed,
		"duration", time.Since(start))
	return summary
}

func (r *Refresher) refreshBatch(ctx context.Context, ids []int) (refreshed, failed int) {
	log := core.Logger(ctx)

	games, err := r.loader.Load(ctx, ids, true)
	if err == nil {
		return countReturned(ctx, ids, games)
	}
	log.Warn("stale batch refresh failed, retrying individually", "ids", len(ids), "error", err)

	for _, id := range ids {
		if ctx.Err() != nil {
			return refreshed, failed + 1
		}
		games, err := r.loader.Load(ctx, []int{id}, true)
		if err != nil {
			log.Warn("stale game refresh failed", "game_id", id, "error", err)
			failed++
			continue
		}
		ok, missing := countReturned(ctx, []int{id}, games)
		refreshed += ok
		failed += missing
	}
	return refreshed, failed
}

// countReturned matches the games a load returned against the ids it was
// asked for. A requested id with no game in the result stays stale and is
// reported as a failure.
func countReturned(ctx context.Context, requested []int, games []core.Game) (refreshed, failed int) {
	returned := make(map[int]struct{}, len(games))
	for i := range games {
		returned[games[i].ID] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := returned[id]; ok {
			refreshed++
			continue
		}
		core.Logger(ctx).Warn("stale game missing from upstream response", "game_id", id)
		failed++
	}
	return refreshed, failed
}

// Start runs a sweep every interval until the returned stop function is
// called. Stop waits for an in-flight sweep to return.
func (r *Refresher) Start(interval time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepCtx, sweepCancel := context.WithTimeout(ctx, r.timeout)
				r.RefreshStaleGames(sweepCtx)
				sweepCancel()
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

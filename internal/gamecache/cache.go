package gamecache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bggcache/internal/core"
)

var (
	gameCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bggcache_game_cache_hits_total",
		Help: "Total number of game records served from the game cache",
	})
	gameCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bggcache_game_cache_misses_total",
		Help: "Total number of game cache lookups that found no record",
	})
	gameCacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bggcache_game_cache_errors_total",
		Help: "Total number of game cache backend failures, by operation",
	}, []string{"operation"})
)

// Cache is the game cache used by request handling and the refresher.
// Backend failures are logged and reported as misses so a broken store slows
// the gateway down without failing requests.
type Cache struct {
	store Store
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for write timestamps and staleness.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache wraps store.
func NewCache(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the cached record for id. The bool is false when the id was
// never cached or the backend could not be read.
func (c *Cache) Load(ctx context.Context, id int) (*core.Game, bool) {
	game, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			gameCacheMisses.Inc()
			return nil, false
		}
		gameCacheErrors.WithLabelValues("load").Inc()
		core.Logger(ctx).Warn("game cache load failed", "game_id", id, "error", err)
		return nil, false
	}
	gameCacheHits.Inc()
	return game, true
}

// Save upserts game and resets its write timestamp to now.
func (c *Cache) Save(ctx context.Context, game *core.Game) {
	if game == nil {
		return
	}
	if err := c.store.Upsert(ctx, game, c.now().UTC()); err != nil {
		gameCacheErrors.WithLabelValues("save").Inc()
		core.Logger(ctx).Warn("game cache save failed", "game_id", game.ID, "error", err)
	}
}

// LoadStale returns every cached id written more than threshold ago.
func (c *Cache) LoadStale(ctx context.Context, threshold time.Duration) []int {
	cutoff := c.now().UTC().Add(-threshold)
	ids, err := c.store.StaleIDs(ctx, cutoff)
	if err != nil {
		gameCacheErrors.WithLabelValues("load_stale").Inc()
		core.Logger(ctx).Warn("game cache stale query failed", "error", err)
		return nil
	}
	return ids
}

// LastRefresh returns the most recent write timestamp across all entries.
func (c *Cache) LastRefresh(ctx context.Context) (time.Time, bool) {
	ts, err := c.store.LastRefresh(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			gameCacheErrors.WithLabelValues("last_refresh").Inc()
			core.Logger(ctx).Warn("game cache last refresh query failed", "error", err)
		}
		return time.Time{}, false
	}
	return ts, true
}

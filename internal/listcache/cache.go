package listcache

import (
	"context"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"bggcache/internal/core"
)

// DefaultTTL is how long a resolution is served before it is recomputed.
const DefaultTTL = 24 * time.Hour

// DefaultFetchTimeout bounds a shared upstream fetch. It covers the client's
// full retry schedule.
const DefaultFetchTimeout = 5 * time.Minute

const (
	collectionPrefix = "collection:"
	geekListPrefix   = "geeklist:"
)

var listCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bggcache_list_cache_lookups_total",
	Help: "Total number of list resolutions, by kind and result (hit, miss, error)",
}, []string{"kind", "result"})

// FetchFunc computes the member ids of identifier from the upstream.
type FetchFunc func(ctx context.Context, identifier string) ([]int, error)

// Cache resolves identifiers through Store, calling the fetch function on a
// miss or after expiry. Store failures are logged and treated as misses.
type Cache struct {
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	group        singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// NewCache wraps store. A non-positive ttl uses DefaultTTL.
func NewCache(store Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{store: store, ttl: ttl, fetchTimeout: DefaultFetchTimeout, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveCollection returns the game ids owned by username.
func (c *Cache) ResolveCollection(ctx context.Context, username string, fetch FetchFunc) ([]int, error) {
	return c.resolve(ctx, "collection", collectionPrefix+username, username, fetch)
}

// ResolveList returns the game ids referenced by the geek-list listID.
func (c *Cache) ResolveList(ctx context.Context, listID string, fetch FetchFunc) ([]int, error) {
	return c.resolve(ctx, "geeklist", geekListPrefix+listID, listID, fetch)
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) resolve(ctx context.Context, kind, key, identifier string, fetch FetchFunc) ([]int, error) {
	log := core.Logger(ctx)

	entry, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		listCacheLookups.WithLabelValues(kind, "error").Inc()
		log.Warn("list cache read failed", "key", key, "error", err)
	case entry != nil && !entry.Expired(c.now()):
		listCacheLookups.WithLabelValues(kind, "hit").Inc()
		return slices.Clone(entry.IDs), nil
	default:
		listCacheLookups.WithLabelValues(kind, "miss").Inc()
	}

	// The fetch is shared by every caller waiting on key, so it must not die
	// with the first caller's request. Each caller still stops waiting when
	// its own context ends.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		ids, err := fetch(fetchCtx, identifier)
		if err != nil {
			return nil, err
		}
		// Empty resolutions are not stored.
		if len(ids) > 0 {
			entry := &Entry{IDs: ids, ExpiresAt: c.now().Add(c.ttl)}
			if err := c.store.Set(fetchCtx, key, entry); err != nil {
				log.Warn("list cache write failed", "key", key, "error", err)
			}
		}
		return ids, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]int)), nil
	}
}

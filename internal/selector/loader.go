// Package selector turns client identifiers into filtered, projected game
// records: identifiers resolve to game ids, the Loader turns ids into records
// through the game cache, and the Selector merges, sorts, filters and reduces.
package selector

import (
	"context"

	"bggcache/internal/core"
)

// GameCache is the part of the game cache the Loader needs.
type GameCache interface {
	Load(ctx context.Context, id int) (*core.Game, bool)
	Save(ctx context.Context, game *core.Game)
}

// GameFetcher fetches full records for a batch of ids.
type GameFetcher interface {
	Games(ctx context.Context, ids []int) ([]core.Game, error)
}

// Loader serves game records from the cache and fetches the rest upstream in
// a single batch.
type Loader struct {
	cache    GameCache
	upstream GameFetcher
}

// NewLoader creates a Loader.
func NewLoader(cache GameCache, upstream GameFetcher) *Loader {
	return &Loader{cache: cache, upstream: upstream}
}

// Load returns records for ids. Cached records come first, followed by the
// freshly fetched ones; callers needing an order must sort. With bypassCache
// every id is fetched. Every fetched record is written back to the cache.
// An upstream failure fails the whole call.
func (l *Loader) Load(ctx context.Context, ids []int, bypassCache bool) ([]core.Game, error) {
	ids = dedupe(ids)
	games := make([]core.Game, 0, len(ids))

	missing := ids
	if !bypassCache {
		missing = make([]int, 0, len(ids))
		for _, id := range ids {
			if g, ok := l.cache.Load(ctx, id); ok {
				games = append(games, *g)
				continue
			}
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return games, nil
	}

	fetched, err := l.upstream.Games(ctx, missing)
	if err != nil {
		return nil, err
	}
	core.Logger(ctx).Debug("fetched games from upstream",
		"requested", len(missing), "received", len(fetched), "cached", len(games))

	for i := range fetched {
		l.cache.Save(ctx, &fetched[i])
	}
	return append(games, fetched...), nil
}

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

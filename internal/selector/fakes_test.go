package selector

import (
	"context"
	"sync"

	"bggcache/internal/core"
	"bggcache/internal/listcache"
)

type fakeUpstream struct {
	mu          sync.Mutex
	games       map[int]core.Game
	collections map[string][]int
	gameCalls   [][]int
	searchCalls int
	err         error
}

func newFakeUpstream(games ...core.Game) *fakeUpstream {
	f := &fakeUpstream{games: make(map[int]core.Game), collections: make(map[string][]int)}
	for _, g := range games {
		f.games[g.ID] = g
	}
	return f
}

func (f *fakeUpstream) Games(_ context.Context, ids []int) ([]core.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gameCalls = append(f.gameCalls, append([]int(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	var out []core.Game
	for _, id := range ids {
		if g, ok := f.games[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeUpstream) Collection(_ context.Context, username string) ([]int, error) {
	ids, ok := f.collections[username]
	if !ok {
		return nil, core.ErrUpstreamNotFound
	}
	return ids, nil
}

func (f *fakeUpstream) Search(_ context.Context, query string) ([]core.SearchResult, error) {
	f.searchCalls++
	return []core.SearchResult{{ID: 1, Name: query}}, nil
}

type fakeGeekLists map[string][]int

func (f fakeGeekLists) GeekList(_ context.Context, listID string) ([]int, error) {
	return f[listID], nil
}

type mapCache struct {
	mu    sync.Mutex
	games map[int]core.Game
	saves int
}

func newMapCache(games ...core.Game) *mapCache {
	c := &mapCache{games: make(map[int]core.Game)}
	for _, g := range games {
		c.games[g.ID] = g
	}
	return c
}

func (c *mapCache) Load(_ context.Context, id int) (*core.Game, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.games[id]
	if !ok {
		return nil, false
	}
	return &g, true
}

func (c *mapCache) Save(_ context.Context, g *core.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games[g.ID] = *g
	c.saves++
}

// passthroughLists never caches; it exercises the resolver error paths.
type passthroughLists struct{}

func (passthroughLists) ResolveCollection(ctx context.Context, username string, fetch listcache.FetchFunc) ([]int, error) {
	return fetch(ctx, username)
}

func (passthroughLists) ResolveList(ctx context.Context, listID string, fetch listcache.FetchFunc) ([]int, error) {
	return fetch(ctx, listID)
}

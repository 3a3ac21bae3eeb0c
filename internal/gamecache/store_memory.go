package gamecache

import (
	"context"
	"sort"
	"sync"
	"time"

	"bggcache/internal/core"
)

type memoryEntry struct {
	payload  []byte
	cachedAt time.Time
}

// MemoryStore keeps cached games in process memory.
// Data survives across requests but not process restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[int]memoryEntry
}

// NewMemoryStore creates an empty in-memory game store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[int]memoryEntry),
	}
}

// Get returns a copy of the cached game.
func (s *MemoryStore) Get(_ context.Context, id int) (*core.Game, error) {
	s.mu.RLock()
	e, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return deserializeGame(e.payload)
}

// Upsert stores a copy of game.
func (s *MemoryStore) Upsert(_ context.Context, game *core.Game, cachedAt time.Time) error {
	payload, err := serializeGame(game)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[game.ID] = memoryEntry{payload: payload, cachedAt: cachedAt}
	return nil
}

// StaleIDs returns ids written before cutoff, oldest first.
func (s *MemoryStore) StaleIDs(_ context.Context, cutoff time.Time) ([]int, error) {
	type stale struct {
		id int
		at time.Time
	}

	s.mu.RLock()
	var found []stale
	for id, e := range s.items {
		if e.cachedAt.Before(cutoff) {
			found = append(found, stale{id: id, at: e.cachedAt})
		}
	}
	s.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool {
		if found[i].at.Equal(found[j].at) {
			return found[i].id < found[j].id
		}
		return found[i].at.Before(found[j].at)
	})

	ids := make([]int, 0, len(found))
	for _, f := range found {
		ids = append(ids, f.id)
	}
	return ids, nil
}

// LastRefresh returns the newest write time across all cached games.
func (s *MemoryStore) LastRefresh(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, e := range s.items {
		if e.cachedAt.After(latest) {
			latest = e.cachedAt
		}
	}
	if latest.IsZero() {
		return time.Time{}, ErrNotFound
	}
	return latest, nil
}

// Close releases resources (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}

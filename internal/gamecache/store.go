// Package gamecache persists full game records keyed by game id, each with the
// time it was written. Entries are upserted wholesale and never deleted;
// staleness is answered by query, not eviction.
package gamecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bggcache/internal/core"
)

// ErrNotFound indicates the requested id has never been cached, or the cache
// holds no entries at all.
var ErrNotFound = errors.New("game not cached")

// Store defines persistence operations for cached game records.
// Implementations must make Upsert atomic per id (last write wins).
type Store interface {
	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id int) (*core.Game, error)

	// Upsert replaces the record for game.ID and sets its write time.
	Upsert(ctx context.Context, game *core.Game, cachedAt time.Time) error

	// StaleIDs returns every id whose write time is strictly before cutoff.
	StaleIDs(ctx context.Context, cutoff time.Time) ([]int, error)

	// LastRefresh returns the most recent write time, or ErrNotFound when empty.
	LastRefresh(ctx context.Context) (time.Time, error)

	Close() error
}

func serializeGame(game *core.Game) ([]byte, error) {
	if game == nil {
		return nil, fmt.Errorf("game is nil")
	}
	b, err := json.Marshal(game)
	if err != nil {
		return nil, fmt.Errorf("marshal game: %w", err)
	}
	return b, nil
}

func deserializeGame(raw []byte) (*core.Game, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty game payload")
	}
	var game core.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return nil, fmt.Errorf("unmarshal game: %w", err)
	}
	return &game, nil
}

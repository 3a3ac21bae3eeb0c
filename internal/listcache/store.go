// Package listcache caches the resolution of a collection or geek-list
// identifier to the ids of its member games. Entries carry an absolute expiry
// that is compared to the clock when read; nothing is swept proactively.
package listcache

import (
	"context"
	"time"
)

// Entry is one stored resolution.
type Entry struct {
	IDs       []int     `json:"ids"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store defines the persistence used by Cache.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry stored under key.
	// Returns nil, nil if nothing is stored.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores entry under key, replacing any previous value.
	Set(ctx context.Context, key string, entry *Entry) error

	// Close releases any resources held by the store.
	Close() error
}

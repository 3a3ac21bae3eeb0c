package listcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemorySize bounds the number of resolutions kept in process.
const DefaultMemorySize = 4096

// MemoryStore keeps resolutions in a bounded in-process LRU.
// Nothing survives a restart.
type MemoryStore struct {
	lru *expirable.LRU[string, *Entry]
}

// NewMemoryStore creates an LRU holding at most size entries, each evicted
// ttl after insertion. A non-positive size uses DefaultMemorySize.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &MemoryStore{lru: expirable.NewLRU[string, *Entry](size, nil, ttl)}
}

// Get returns the entry for key.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	entry, ok := s.lru.Get(key)
	if !ok {
		return nil, nil
	}
	return entry, nil
}

// Set stores entry under key.
func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	s.lru.Add(key, entry)
	return nil
}

// Close purges the LRU.
func (s *MemoryStore) Close() error {
	s.lru.Purge()
	return nil
}

package selector

import (
	"context"
	"unicode/utf8"

	"bggcache/internal/core"
)

// MinSearchLength is the shortest query sent upstream.
const MinSearchLength = 3

// Searcher looks games up by name.
type Searcher interface {
	Search(ctx context.Context, query string) ([]core.SearchResult, error)
}

// Search answers name searches.
type Search struct {
	upstream Searcher
}

// NewSearch creates a Search.
func NewSearch(upstream Searcher) *Search {
	return &Search{upstream: upstream}
}

// SearchForGame returns matches for name. Queries shorter than
// MinSearchLength characters return nothing without calling upstream.
func (s *Search) SearchForGame(ctx context.Context, name string) ([]core.SearchResult, error) {
	if utf8.RuneCountInString(name) < MinSearchLength {
		return []core.SearchResult{}, nil
	}
	return s.upstream.Search(ctx, name)
}

package selector

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"bggcache/internal/core"
	"bggcache/internal/fields"
	"bggcache/internal/filter"
)

// Selector produces the response for a list of identifiers of one kind.
// A Selector is built per request and is not safe for concurrent use.
type Selector struct {
	resolver    Resolver
	loader      *Loader
	identifiers []string
	reduction   fields.Reduction
}

// New creates a Selector over identifiers.
func New(resolver Resolver, loader *Loader, identifiers []string, reduction fields.Reduction) *Selector {
	return &Selector{
		resolver:    resolver,
		loader:      loader,
		identifiers: identifiers,
		reduction:   reduction,
	}
}

// ParseIdentifiers splits a comma-separated identifier list, trimming
// whitespace and dropping empty entries.
func ParseIdentifiers(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Identifiers returns the identifiers the selector was built with.
func (s *Selector) Identifiers() []string {
	return s.identifiers
}

// GamesForID returns the records behind a single identifier.
func (s *Selector) GamesForID(ctx context.Context, identifier string) ([]core.Game, error) {
	ids, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.loader.Load(ctx, ids, false)
}

// Games returns the records for every identifier, concatenated and stably
// sorted by name. A game reachable from two identifiers appears twice.
func (s *Selector) Games(ctx context.Context) ([]core.Game, error) {
	var games []core.Game
	for _, id := range s.identifiers {
		found, err := s.GamesForID(ctx, id)
		if err != nil {
			return nil, err
		}
		games = append(games, found...)
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].Name < games[j].Name
	})
	return games, nil
}

// GamesMatchingFilter returns the sorted records that chain keeps, each
// projected through the selector's field reduction.
func (s *Selector) GamesMatchingFilter(ctx context.Context, chain *filter.Chain) ([]json.RawMessage, error) {
	games, err := s.Games(ctx)
	if err != nil {
		return nil, err
	}

	kept := games[:0]
	for i := range games {
		if !chain.Excludes(&games[i]) {
			kept = append(kept, games[i])
		}
	}
	core.Logger(ctx).Debug("filtered games", "total", len(games), "kept", len(kept))

	return s.reduction.Apply(kept)
}

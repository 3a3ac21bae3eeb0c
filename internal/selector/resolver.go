package selector

import (
	"context"
	"errors"

	"bggcache/internal/core"
	"bggcache/internal/listcache"
)

// Resolver maps one client identifier to the ids of its games.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) ([]int, error)
}

// ListCache is the part of the game-list cache the resolvers need.
type ListCache interface {
	ResolveCollection(ctx context.Context, username string, fetch listcache.FetchFunc) ([]int, error)
	ResolveList(ctx context.Context, listID string, fetch listcache.FetchFunc) ([]int, error)
}

// CollectionFetcher returns the ids of the games a user owns.
type CollectionFetcher interface {
	Collection(ctx context.Context, username string) ([]int, error)
}

// PlayerResolver resolves usernames through their owned collection.
type PlayerResolver struct {
	Lists    ListCache
	Upstream CollectionFetcher
}

// Resolve returns the ids owned by username, or a user-not-found error.
func (r PlayerResolver) Resolve(ctx context.Context, username string) ([]int, error) {
	ids, err := r.Lists.ResolveCollection(ctx, username, r.Upstream.Collection)
	if err != nil {
		if errors.Is(err, core.ErrUpstreamNotFound) {
			return nil, core.NewUserNotFoundError(username, err)
		}
		return nil, err
	}
	return ids, nil
}

// GeekListResolver resolves geek-list ids through the legacy list API.
type GeekListResolver struct {
	Lists  ListCache
	Source core.GeekListSource
}

// Resolve returns the ids on the list. A missing list and an empty list both
// produce a list-not-found error.
func (r GeekListResolver) Resolve(ctx context.Context, listID string) ([]int, error) {
	ids, err := r.Lists.ResolveList(ctx, listID, r.Source.GeekList)
	if err != nil {
		if errors.Is(err, core.ErrUpstreamNotFound) {
			return nil, core.NewListNotFoundError(listID)
		}
		return nil, err
	}
	if len(ids) == 0 {
		return nil, core.NewListNotFoundError(listID)
	}
	return ids, nil
}

package core

import "context"

// Upstream is the board-game data API. Implementations retry transient
// failures internally; an error returned here is final for the call.
type Upstream interface {
	// Games fetches full records for ids in one logical batch.
	Games(ctx context.Context, ids []int) ([]Game, error)

	// Collection returns the ids of the games a user owns.
	Collection(ctx context.Context, username string) ([]int, error)

	// Search looks games up by (partial) name.
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// GeekListSource resolves a curated geek-list to its member game ids.
type GeekListSource interface {
	GeekList(ctx context.Context, listID string) ([]int, error)
}

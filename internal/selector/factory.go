package selector

import (
	"bggcache/internal/core"
	"bggcache/internal/fields"
)

// Factory builds per-request selectors over shared caches and clients.
type Factory struct {
	loader   *Loader
	lists    ListCache
	upstream core.Upstream
	geekList core.GeekListSource
}

// NewFactory creates a Factory.
func NewFactory(loader *Loader, lists ListCache, upstream core.Upstream, geekList core.GeekListSource) *Factory {
	return &Factory{
		loader:   loader,
		lists:    lists,
		upstream: upstream,
		geekList: geekList,
	}
}

// PlayerSelector builds a selector over comma-separated usernames.
func (f *Factory) PlayerSelector(usernames string, reduction fields.Reduction) *Selector {
	resolver := PlayerResolver{Lists: f.lists, Upstream: f.upstream}
	return New(resolver, f.loader, ParseIdentifiers(usernames), reduction)
}

// GeekListSelector builds a selector over comma-separated geek-list ids.
func (f *Factory) GeekListSelector(listIDs string, reduction fields.Reduction) *Selector {
	resolver := GeekListResolver{Lists: f.lists, Source: f.geekList}
	return New(resolver, f.loader, ParseIdentifiers(listIDs), reduction)
}

// Search builds a name search.
func (f *Factory) Search() *Search {
	return NewSearch(f.upstream)
}

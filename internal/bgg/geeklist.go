package bgg

import (
	"context"
	"encoding/xml"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"bggcache/internal/core"
)

// LegacyClient talks to the XML API v1, which is the only API serving
// geek-lists.
type LegacyClient struct {
	baseURL string
	req     *requester
}

var _ core.GeekListSource = (*LegacyClient)(nil)

// NewLegacyClient creates a v1 API client.
func NewLegacyClient(cfg Config) *LegacyClient {
	base := cfg.LegacyBaseURL
	if base == "" {
		base = DefaultLegacyBaseURL
	}
	return &LegacyClient{
		baseURL: strings.TrimRight(base, "/"),
		req:     newRequester(cfg),
	}
}

// geekListThing is the object type of games and expansions.
const geekListThing = "thing"

// GeekList returns the object ids of the list's game items in document order.
// A list that does not exist yields no ids and no error; the API does not
// tell the two cases apart reliably.
func (c *LegacyClient) GeekList(ctx context.Context, listID string) ([]int, error) {
	body, err := c.req.get(ctx, "geeklist", c.baseURL+"/geeklist/"+url.PathEscape(listID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Unknown lists come back as a bare <error> document, which decodes to
	// zero items.
	var doc geekList
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, core.NewUpstreamError(0, "failed to parse geeklist response", err)
	}

	ids := make([]int, 0, len(doc.Items))
	for _, item := range doc.Items {
		// Lists may also hold designers, publishers and families.
		if item.ObjectType != "" && item.ObjectType != geekListThing {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(item.ObjectID))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

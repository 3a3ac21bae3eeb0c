package bgg

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"bggcache/internal/core"
)

// thingBatchSize is the most ids the thing endpoint accepts per request.
const thingBatchSize = 20

// Client talks to the XML API v2.
type Client struct {
	baseURL string
	req     *requester
}

var _ core.Upstream = (*Client)(nil)

// NewClient creates a v2 API client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		req:     newRequester(cfg),
	}
}

// Games fetches full records with statistics for ids. Ids the API does not
// know are silently absent from the result.
func (c *Client) Games(ctx context.Context, ids []int) ([]core.Game, error) {
	games := make([]core.Game, 0, len(ids))
	for start := 0; start < len(ids); start += thingBatchSize {
		end := min(start+thingBatchSize, len(ids))

		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.Itoa(id))
		}
		q := url.Values{}
		q.Set("id", strings.Join(parts, ","))
		q.Set("stats", "1")

		body, err := c.req.get(ctx, "thing", c.baseURL+"/thing?"+q.Encode())
		if err != nil {
			return nil, err
		}

		var doc thingItems
		if err := xml.Unmarshal(body, &doc); err != nil {
			return nil, core.NewUpstreamError(0, "failed to parse thing response", err)
		}
		for _, item := range doc.Items {
			games = append(games, item.toGame())
		}
	}
	return games, nil
}

// Collection returns the ids of the games username owns, in document order.
// Unknown users yield ErrNotFound.
func (c *Client) Collection(ctx context.Context, username string) ([]int, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("own", "1")

	body, err := c.req.get(ctx, "collection", c.baseURL+"/collection?"+q.Encode())
	if err != nil {
		return nil, err
	}

	if isErrorDocument(body) {
		var apiErr apiErrors
		if err := xml.Unmarshal(body, &apiErr); err != nil {
			return nil, core.NewUpstreamError(0, "failed to parse collection error", err)
		}
		for _, e := range apiErr.Errors {
			if strings.Contains(strings.ToLower(e.Message), "invalid username") {
				return nil, fmt.Errorf("collection %q: %w", username, ErrNotFound)
			}
		}
		msg := "collection request rejected"
		if len(apiErr.Errors) > 0 {
			msg = strings.TrimSpace(apiErr.Errors[0].Message)
		}
		return nil, core.NewUpstreamError(0, msg, nil)
	}

	var doc collectionItems
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, core.NewUpstreamError(0, "failed to parse collection response", err)
	}
	ids := make([]int, 0, len(doc.Items))
	for _, item := range doc.Items {
		ids = append(ids, item.ObjectID)
	}
	return ids, nil
}

// Search looks board games up by partial name.
func (c *Client) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("type", "boardgame")

	body, err := c.req.get(ctx, "search", c.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var doc searchItems
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, core.NewUpstreamError(0, "failed to parse search response", err)
	}
	results := make([]core.SearchResult, 0, len(doc.Items))
	for _, item := range doc.Items {
		name := thingItem{Names: item.Names}.primaryName()
		results = append(results, core.SearchResult{
			ID:            item.ID,
			Name:          name,
			Type:          item.Type,
			YearPublished: item.YearPublished.int(),
		})
	}
	return results, nil
}

func isErrorDocument(body []byte) bool {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local == "errors"
		}
	}
}

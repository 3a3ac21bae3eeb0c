package bgg

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bggcache/internal/core"
)

const catanThing = `<?xml version="1.0" encoding="utf-8"?>
<items termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
  <item type="boardgame" id="13">
    <thumbnail>https://cf.geekdo-images.com/thumb.jpg</thumbnail>
    <image>https://cf.geekdo-images.com/full.jpg</image>
    <name type="alternate" sortindex="1" value="Die Siedler von Catan" />
    <name type="primary" sortindex="1" value="CATAN" />
    <description>Trade, build and settle.</description>
    <yearpublished value="1995" />
    <minplayers value="3" />
    <maxplayers value="4" />
    <poll name="suggested_numplayers" title="User Suggested Number of Players" totalvotes="100">
      <results numplayers="1">
        <result value="Best" numvotes="0" />
        <result value="Recommended" numvotes="1" />
        <result value="Not Recommended" numvotes="90" />
      </results>
      <results numplayers="4">
        <result value="Best" numvotes="70" />
        <result value="Recommended" numvotes="20" />
        <result value="Not Recommended" numvotes="2" />
      </results>
      <results numplayers="4+">
        <result value="Best" numvotes="1" />
        <result value="Recommended" numvotes="2" />
        <result value="Not Recommended" numvotes="50" />
      </results>
    </poll>
    <playingtime value="120" />
    <minplaytime value="60" />
    <maxplaytime value="120" />
    <minage value="10" />
    <link type="boardgamecategory" id="1021" value="Economic" />
    <link type="boardgamemechanic" id="2072" value="Dice Rolling" />
    <link type="boardgamemechanic" id="2008" value="Trading" />
    <link type="boardgamedesigner" id="11" value="Klaus Teuber" />
    <statistics page="1">
      <ratings>
        <usersrated value="120000" />
        <average value="7.1" />
        <averageweight value="2.3" />
      </ratings>
    </statistics>
  </item>
  <item type="boardgameexpansion" id="926">
    <name type="primary" sortindex="1" value="CATAN: Seafarers" />
    <statistics page="1">
      <ratings>
        <usersrated value="0" />
        <average value="0" />
        <averageweight value="0" />
      </ratings>
    </statistics>
  </item>
</items>`

func testConfig(srv *httptest.Server) Config {
	return Config{
		BaseURL:       srv.URL,
		LegacyBaseURL: srv.URL,
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
		HTTPClient:    srv.Client(),
	}
}

func TestGamesParsesThings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/thing", r.URL.Path)
		assert.Equal(t, "13,926", r.URL.Query().Get("id"))
		assert.Equal(t, "1", r.URL.Query().Get("stats"))
		_, _ = w.Write([]byte(catanThing))
	}))
	defer srv.Close()

	games, err := NewClient(testConfig(srv)).Games(context.Background(), []int{13, 926})
	require.NoError(t, err)
	require.Len(t, games, 2)

	catan := games[0]
	assert.Equal(t, 13, catan.ID)
	assert.Equal(t, "CATAN", catan.Name)
	assert.Equal(t, 1995, catan.YearPublished)
	assert.Equal(t, 3, catan.MinPlayers)
	assert.Equal(t, 4, catan.MaxPlayers)
	assert.Equal(t, 60, catan.MinPlayingTime)
	assert.Equal(t, 120, catan.MaxPlayingTime)
	assert.Equal(t, 10, catan.MinAge)
	assert.False(t, catan.Expansion)
	assert.Equal(t, []string{"Dice Rolling", "Trading"}, catan.Mechanics)
	assert.Equal(t, []string{"Economic"}, catan.Categories)
	assert.Equal(t, []string{"Klaus Teuber"}, catan.Designers)
	assert.Equal(t, []core.PlayerSuggestion{
		{PlayerCount: 1, Best: 0, Recommended: 1, NotRecommended: 90},
		{PlayerCount: 4, Best: 70, Recommended: 20, NotRecommended: 2},
	}, catan.SuggestedPlayers)
	require.NotNil(t, catan.RatingAverage)
	assert.InDelta(t, 7.1, *catan.RatingAverage, 1e-9)
	assert.InDelta(t, 2.3, catan.Weight(), 1e-9)

	seafarers := games[1]
	assert.True(t, seafarers.Expansion)
	assert.Nil(t, seafarers.RatingAverage, "unrated games have no average")
	assert.Nil(t, seafarers.RatingAverageWeight)
}

func TestGamesChunksLargeBatches(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		assert.LessOrEqual(t, len(ids), thingBatchSize)
		var b strings.Builder
		b.WriteString("<items>")
		for _, id := range ids {
			fmt.Fprintf(&b, `<item type="boardgame" id="%s"><name type="primary" value="g%s"/></item>`, id, id)
		}
		b.WriteString("</items>")
		_, _ = w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	ids := make([]int, 45)
	for i := range ids {
		ids[i] = i + 1
	}
	games, err := NewClient(testConfig(srv)).Games(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, games, 45)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestCollectionRetriesWhileQueued(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collection", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("username"))
		assert.Equal(t, "1", r.URL.Query().Get("own"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`<message>Your request for this collection has been accepted</message>`))
			return
		}
		_, _ = w.Write([]byte(`<items totalitems="2">
			<item objecttype="thing" objectid="174430" subtype="boardgame"/>
			<item objecttype="thing" objectid="13" subtype="boardgame"/>
		</items>`))
	}))
	defer srv.Close()

	ids, err := NewClient(testConfig(srv)).Collection(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []int{174430, 13}, ids)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCollectionUnknownUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><errors><error><message>Invalid username specified</message></error></errors>`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv)).Collection(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "catan", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`<items total="1">
			<item type="boardgame" id="13">
				<name type="primary" value="CATAN"/>
				<yearpublished value="1995"/>
			</item>
		</items>`))
	}))
	defer srv.Close()

	results, err := NewClient(testConfig(srv)).Search(context.Background(), "catan")
	require.NoError(t, err)
	assert.Equal(t, []core.SearchResult{{ID: 13, Name: "CATAN", Type: "boardgame", YearPublished: 1995}}, results)
}

func TestRetriesExhausted(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType core.ErrorType
		wantCode int
	}{
		{"server error", http.StatusServiceUnavailable, core.ErrorTypeUpstream, http.StatusBadGateway},
		{"rate limited", http.StatusTooManyRequests, core.ErrorTypeRateLimit, http.StatusTooManyRequests},
		{"still queued", http.StatusAccepted, core.ErrorTypeUpstream, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewClient(testConfig(srv)).Search(context.Background(), "anything")
			var gw *core.GatewayError
			require.True(t, errors.As(err, &gw), "expected gateway error, got %v", err)
			assert.Equal(t, tt.wantType, gw.Type)
			assert.Equal(t, tt.wantCode, gw.HTTPStatusCode())
			assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "first attempt plus two retries")
		})
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv)).Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv)
	cfg.RetryDelay = time.Hour
	client := NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, "anything")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompressedResponses(t *testing.T) {
	body := `<items><item type="boardgame" id="1"><name type="primary" value="Compressed"/></item></items>`

	encoders := map[string]func([]byte) []byte{
		"br": func(b []byte) []byte {
			var buf bytes.Buffer
			w := brotli.NewWriter(&buf)
			_, _ = w.Write(b)
			_ = w.Close()
			return buf.Bytes()
		},
		"gzip": func(b []byte) []byte {
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			_, _ = w.Write(b)
			_ = w.Close()
			return buf.Bytes()
		},
	}

	for encoding, encode := range encoders {
		t.Run(encoding, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), encoding)
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(encode([]byte(body)))
			}))
			defer srv.Close()

			results, err := NewClient(testConfig(srv)).Search(context.Background(), "comp")
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "Compressed", results[0].Name)
		})
	}
}

func TestBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`<items/>`))
	}))
	defer srv.Close()

	cfg := testConfig(srv)
	cfg.Token = "secret-token"
	_, err := NewClient(cfg).Search(context.Background(), "abc")
	require.NoError(t, err)
}

func TestGeekList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/geeklist/266208":
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
			<geeklist id="266208">
				<title>Family favourites</title>
				<item id="1" objecttype="thing" subtype="boardgame" objectid="822" objectname="Carcassonne"/>
				<item id="2" objecttype="person" subtype="boardgamedesigner" objectid="11" objectname="Klaus Teuber"/>
				<item id="3" objecttype="thing" subtype="boardgame" objectid="13" objectname="CATAN"/>
			</geeklist>`))
		case "/geeklist/404":
			_, _ = w.Write([]byte(`<error message="Invalid geeklist"/>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewLegacyClient(testConfig(srv))

	ids, err := client.GeekList(context.Background(), "266208")
	require.NoError(t, err)
	assert.Equal(t, []int{822, 13}, ids)

	ids, err = client.GeekList(context.Background(), "404")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = client.GeekList(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

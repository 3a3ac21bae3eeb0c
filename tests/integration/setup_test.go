//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bggcache/config"
	"bggcache/internal/app"
)

// TestServerConfig configures how the test server is set up.
type TestServerConfig struct {
	// DBType is "postgresql" or "mongodb"
	DBType string

	// ListCacheType is "redis" or "local"
	ListCacheType string
}

// TestServerFixture holds test server resources.
type TestServerFixture struct {
	// ServerURL is the base URL of the test server
	ServerURL string

	// App is the running application
	App *app.App

	// MockBGG is the fake board-game API
	MockBGG *MockBGGServer
}

// SetupTestServer creates a running server with the specified configuration.
func SetupTestServer(t *testing.T, cfg TestServerConfig) *TestServerFixture {
	t.Helper()

	mock := NewMockBGGServer()

	port, err := findAvailablePort()
	require.NoError(t, err, "failed to find available port")

	appCfg := buildAppConfig(t, cfg, mock.URL(), port)

	application, err := app.New(GetTestContext(), appCfg)
	require.NoError(t, err, "failed to create app")

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	go func() {
		_ = application.Start(fmt.Sprintf("127.0.0.1:%d", port))
	}()

	err = waitForServer(serverURL + "/health")
	require.NoError(t, err, "server failed to become healthy")

	fixture := &TestServerFixture{
		ServerURL: serverURL,
		App:       application,
		MockBGG:   mock,
	}
	t.Cleanup(func() { fixture.Shutdown(t) })
	return fixture
}

// Shutdown gracefully shuts down the test server.
func (f *TestServerFixture) Shutdown(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if f.App != nil {
		_ = f.App.Shutdown(ctx)
	}
	if f.MockBGG != nil {
		f.MockBGG.Close()
	}
}

// Get issues a GET against the test server.
func (f *TestServerFixture) Get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, f.ServerURL+path, nil)
	require.NoError(t, err, "failed to create request")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send request")
	return resp
}

// buildAppConfig creates an application config for testing.
func buildAppConfig(t *testing.T, cfg TestServerConfig, bggURL string, port int) *config.Config {
	t.Helper()

	appCfg := config.Defaults()
	appCfg.Server.Port = fmt.Sprintf("%d", port)
	appCfg.Metrics.Enabled = false
	appCfg.Refresh.Enabled = false
	appCfg.BGG.BaseURL = bggURL
	appCfg.BGG.LegacyBaseURL = bggURL
	appCfg.BGG.MaxRetries = 1
	appCfg.BGG.RetryDelay = config.Duration(10 * time.Millisecond)

	switch cfg.DBType {
	case "postgresql":
		appCfg.Storage.Type = "postgresql"
		appCfg.Storage.PostgresURL = pgURL
		appCfg.Storage.PostgresMaxConns = 5
	case "mongodb":
		appCfg.Storage.Type = "mongodb"
		appCfg.Storage.MongoDBURL = mongoURL
		appCfg.Storage.MongoDBDatabase = testDatabase
	default:
		t.Fatalf("unsupported DB type: %s", cfg.DBType)
	}

	switch cfg.ListCacheType {
	case "redis":
		appCfg.ListCache.Type = "redis"
		appCfg.ListCache.RedisURL = redisURL
		appCfg.ListCache.RedisKeyPrefix = fmt.Sprintf("bggcache:test:%s:", t.Name())
	default:
		appCfg.ListCache.Type = "local"
		appCfg.ListCache.Path = filepath.Join(t.TempDir(), "game_lists.json")
	}

	return appCfg
}

// waitForServer waits for the server to become healthy.
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within timeout")
}

// findAvailablePort finds an available TCP port on loopback.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// GetTestContext returns the shared test context.
func GetTestContext() context.Context {
	return testCtx
}

// MockBGGServer serves a fixed two-game world: user "alice" owns both games
// and geek-list 1001 holds one of them.
type MockBGGServer struct {
	server      *httptest.Server
	thingCalls  atomic.Int32
	collections atomic.Int32
}

// NewMockBGGServer creates a new mock board-game API.
func NewMockBGGServer() *MockBGGServer {
	m := &MockBGGServer{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		switch r.URL.Path {
		case "/collection":
			m.collections.Add(1)
			if r.URL.Query().Get("username") != "alice" {
				_, _ = w.Write([]byte(`<errors><error><message>Invalid username specified</message></error></errors>`))
				return
			}
			_, _ = w.Write([]byte(`<items totalitems="2">
				<item objecttype="thing" objectid="13" subtype="boardgame"/>
				<item objecttype="thing" objectid="230802" subtype="boardgame"/>
			</items>`))
		case "/thing":
			m.thingCalls.Add(1)
			_, _ = w.Write([]byte(thingsXML))
		case "/geeklist/1001":
			_, _ = w.Write([]byte(`<geeklist id="1001"><item objecttype="thing" subtype="boardgame" objectid="230802" objectname="Azul"/></geeklist>`))
		default:
			http.NotFound(w, r)
		}
	}))
	return m
}

// URL returns the server URL.
func (m *MockBGGServer) URL() string {
	return m.server.URL
}

// ThingCalls reports how many thing requests reached the API.
func (m *MockBGGServer) ThingCalls() int {
	return int(m.thingCalls.Load())
}

// CollectionCalls reports how many collection requests reached the API.
func (m *MockBGGServer) CollectionCalls() int {
	return int(m.collections.Load())
}

// Close shuts down the server.
func (m *MockBGGServer) Close() {
	m.server.Close()
}

const thingsXML = `<?xml version="1.0" encoding="utf-8"?>
<items>
  <item type="boardgame" id="13">
    <name type="primary" sortindex="1" value="CATAN"/>
    <yearpublished value="1995"/>
    <minplayers value="3"/>
    <maxplayers value="4"/>
    <minplaytime value="60"/>
    <maxplaytime value="120"/>
    <link type="boardgamemechanic" id="2072" value="Dice Rolling"/>
    <statistics page="1"><ratings>
      <usersrated value="120000"/><average value="7.1"/><averageweight value="2.3"/>
    </ratings></statistics>
  </item>
  <item type="boardgame" id="230802">
    <name type="primary" sortindex="1" value="Azul"/>
    <yearpublished value="2017"/>
    <minplayers value="2"/>
    <maxplayers value="4"/>
    <minplaytime value="30"/>
    <maxplaytime value="45"/>
    <link type="boardgamemechanic" id="2048" value="Pattern Building"/>
    <statistics page="1"><ratings>
      <usersrated value="90000"/><average value="7.7"/><averageweight value="1.8"/>
    </ratings></statistics>
  </item>
</items>`

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddleware(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("generates request ID when missing", func(t *testing.T) {
		rec := f.get("/health", nil)
		got := rec.Header().Get("X-Request-ID")
		// Validate UUID format (8-4-4-4-12 hex digits)
		assert.Len(t, got, 36)
	})

	t.Run("echoes existing request ID", func(t *testing.T) {
		rec := f.get("/health", map[string]string{"X-Request-ID": "my-custom-id"})
		assert.Equal(t, "my-custom-id", rec.Header().Get("X-Request-ID"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name         string
		config       *Config
		requestPath  string
		expectedCode int
	}{
		{"disabled by default", nil, "/metrics", http.StatusNotFound},
		{"enabled default path", &Config{MetricsEnabled: true}, "/metrics", http.StatusOK},
		{"enabled custom path", &Config{MetricsEnabled: true, MetricsEndpoint: "/internal/metrics"}, "/internal/metrics", http.StatusOK},
		{"custom path cleaned", &Config{MetricsEnabled: true, MetricsEndpoint: "/internal/../stats/"}, "/stats", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFixture(t, tt.config).get(tt.requestPath, nil)
			assert.Equal(t, tt.expectedCode, rec.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	f := newFixture(t, &Config{CORSAllowOrigins: []string{"https://games.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/collection/alice", nil)
	req.Header.Set("Origin", "https://games.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Bgg-Filter-Player-Count")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://games.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Bgg-Filter-Player-Count")
}

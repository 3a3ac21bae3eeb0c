//go:build contract

package contract

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"bggcache/internal/bgg"
)

type replayRoute struct {
	statusCode  int
	contentType string
	body        []byte
}

// replayTransport answers requests from fixtures keyed by method and path.
// A key with several routes serves them in order and then repeats the last.
type replayTransport struct {
	t      *testing.T
	routes map[string][]replayRoute

	mu       sync.Mutex
	requests []*http.Request
}

func replayKey(method, path string) string {
	return method + " " + path
}

func (rt *replayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.t.Helper()

	key := replayKey(req.Method, req.URL.Path)

	rt.mu.Lock()
	rt.requests = append(rt.requests, req)
	queue, ok := rt.routes[key]
	var route replayRoute
	if ok && len(queue) > 0 {
		route = queue[0]
		if len(queue) > 1 {
			rt.routes[key] = queue[1:]
		}
	}
	rt.mu.Unlock()

	if !ok {
		notFoundBody := []byte(fmt.Sprintf(`<error message="missing replay route: %s"/>`, key))
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Header: http.Header{
				"Content-Type": []string{"text/xml"},
			},
			Body:    io.NopCloser(bytes.NewReader(notFoundBody)),
			Request: req,
		}, nil
	}

	statusCode := route.statusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	contentType := route.contentType
	if contentType == "" {
		contentType = "text/xml; charset=utf-8"
	}

	return &http.Response{
		StatusCode: statusCode,
		Status:     fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		Header: http.Header{
			"Content-Type": []string{contentType},
		},
		Body:    io.NopCloser(bytes.NewReader(route.body)),
		Request: req,
	}, nil
}

// Requests returns every request seen so far.
func (rt *replayTransport) Requests() []*http.Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]*http.Request(nil), rt.requests...)
}

// newReplayConfig returns client settings whose HTTP calls are served from
// routes, along with the transport for request assertions.
func newReplayConfig(t *testing.T, routes map[string][]replayRoute) (bgg.Config, *replayTransport) {
	t.Helper()
	transport := &replayTransport{t: t, routes: routes}
	return bgg.Config{
		BaseURL:       "https://bgg.test/xmlapi2",
		LegacyBaseURL: "https://bgg.test/xmlapi",
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
		HTTPClient:    &http.Client{Transport: transport},
	}, transport
}

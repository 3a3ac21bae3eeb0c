// Package main provides a CLI tool to record real board-game API responses
// for contract tests.
// Usage:
//
//	BGG_API_TOKEN=xxx go run ./cmd/recordapi \
//	  -endpoint=thing \
//	  -arg=342942,373106 \
//	  -output=tests/contract/testdata/bgg/thing_ark_nova.xml
package main

import (
	"bytes"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	baseURL       = "https://boardgamegeek.com/xmlapi2"
	legacyBaseURL = "https://boardgamegeek.com/xmlapi"
)

// Endpoint configurations
var endpointConfigs = map[string]struct {
	usage string
	build func(arg string) string
}{
	"thing": {
		usage: "comma-separated thing ids",
		build: func(arg string) string {
			return baseURL + "/thing?" + url.Values{"id": {arg}, "stats": {"1"}}.Encode()
		},
	},
	"collection": {
		usage: "username",
		build: func(arg string) string {
			return baseURL + "/collection?" + url.Values{"username": {arg}, "own": {"1"}}.Encode()
		},
	},
	"search": {
		usage: "search query",
		build: func(arg string) string {
			return baseURL + "/search?" + url.Values{"query": {arg}, "type": {"boardgame"}}.Encode()
		},
	},
	"geeklist": {
		usage: "geek-list id",
		build: func(arg string) string {
			return legacyBaseURL + "/geeklist/" + url.PathEscape(arg)
		},
	},
}

func main() {
	endpoint := flag.String("endpoint", "thing", "Endpoint to record (thing, collection, search, geeklist)")
	arg := flag.String("arg", "", "Endpoint argument: ids, username, query or list id (required)")
	output := flag.String("output", "", "Output file path (required)")
	attempts := flag.Int("attempts", 6, "Attempts while the API answers 202 Accepted")
	flag.Parse()

	if *output == "" || *arg == "" {
		fmt.Fprintln(os.Stderr, "Error: -arg and -output flags are required")
		flag.Usage()
		os.Exit(1)
	}

	eConfig, ok := endpointConfigs[*endpoint]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown endpoint %q\n", *endpoint)
		os.Exit(1)
	}

	target := eConfig.build(*arg)
	client := &http.Client{Timeout: 60 * time.Second}

	var (
		status int
		body   []byte
	)
	for attempt := 1; attempt <= *attempts; attempt++ {
		fmt.Printf("Sending request to GET %s (%s)...\n", target, eConfig.usage)

		var err error
		status, body, err = fetch(client, target, os.Getenv("BGG_API_TOKEN"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Response status: %d %s\n", status, http.StatusText(status))
		if status != http.StatusAccepted {
			break
		}
		// the API queues collection exports and answers 202 until ready
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}

	if status != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Warning: recording non-200 response (%d)\n", status)
	}

	if err := xml.Unmarshal(body, new(struct{})); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: response is not well-formed XML: %v\n", err)
	}

	if err := writeOutput(*output, body); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Response saved to %s (%d bytes)\n", *output, len(body))
}

func fetch(client *http.Client, target, token string) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/xml")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, bytes.TrimSpace(body), nil
}

// writeOutput writes data to the output file, creating directories as needed.
func writeOutput(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

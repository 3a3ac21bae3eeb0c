// Package contract provides contract tests that validate parsing of captured
// board-game API responses. These tests verify that the gateway correctly
// handles upstream XML without making actual API calls.
//
// Refresh the fixtures with cmd/recordapi.
//
// Run with: go test -tags=contract ./tests/contract/...
package contract

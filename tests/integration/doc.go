// Package integration provides integration tests that run the game cache and
// list cache against real databases via testcontainers.
//
// Run with: go test -tags=integration ./tests/integration/...
package integration

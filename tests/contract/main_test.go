//go:build contract

// Package contract provides contract tests that validate parsing of captured
// board-game API responses. These tests verify that the gateway correctly
// handles upstream XML without making actual API calls.
package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testdataDir is the path to the testdata directory.
const testdataDir = "testdata"

// loadFixture reads a captured response from testdata as raw bytes.
func loadFixture(t *testing.T, path string) []byte {
	t.Helper()

	fullPath := filepath.Join(testdataDir, path)
	data, err := os.ReadFile(fullPath)
	require.NoError(t, err, "failed to read fixture %s", fullPath)

	return data
}

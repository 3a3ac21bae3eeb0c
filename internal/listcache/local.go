package listcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LocalStore keeps all resolutions in a single JSON file.
// This is suitable for single-instance deployments.
type LocalStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewLocalStore creates a file-backed store at filePath.
func NewLocalStore(filePath string) *LocalStore {
	return &LocalStore{
		filePath: filePath,
	}
}

// Get reads the entry for key from the cache file.
func (s *LocalStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[key]
	if !ok {
		return nil, nil
	}
	return entry, nil
}

// Set rewrites the cache file with entry stored under key.
func (s *LocalStore) Set(_ context.Context, key string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filePath == "" {
		return nil
	}

	entries, err := s.read()
	if err != nil {
		return err
	}
	entries[key] = entry

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal list cache: %w", err)
	}

	// Write atomically using temp file + rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// Close is a no-op for the local store.
func (s *LocalStore) Close() error {
	return nil
}

// read must be called with mu held.
func (s *LocalStore) read() (map[string]*Entry, error) {
	entries := make(map[string]*Entry)
	if s.filePath == "" {
		return entries, nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return entries, nil
}

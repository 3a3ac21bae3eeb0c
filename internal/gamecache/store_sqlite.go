package gamecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bggcache/internal/core"
)

// SQLiteStore stores cached games in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the cached_games table and index if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cached_games (
			id INTEGER PRIMARY KEY,
			cached_at INTEGER NOT NULL,
			data TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create cached_games table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cached_games_cached_at ON cached_games(cached_at)"); err != nil {
		return nil, fmt.Errorf("failed to create cached_games cached_at index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns a cached game by id.
func (s *SQLiteStore) Get(ctx context.Context, id int) (*core.Game, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM cached_games WHERE id = ?", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query game: %w", err)
	}

	game, err := deserializeGame([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decode game %d: %w", id, err)
	}
	return game, nil
}

// Upsert inserts or replaces a cached game.
func (s *SQLiteStore) Upsert(ctx context.Context, game *core.Game, cachedAt time.Time) error {
	payload, err := serializeGame(game)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cached_games (id, cached_at, data)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET cached_at = excluded.cached_at, data = excluded.data
	`, game.ID, cachedAt.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("upsert game %d: %w", game.ID, err)
	}
	return nil
}

// StaleIDs returns ids written before cutoff, oldest first.
func (s *SQLiteStore) StaleIDs(ctx context.Context, cutoff time.Time) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM cached_games WHERE cached_at < ? ORDER BY cached_at, id", cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list stale games: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale game row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale game rows: %w", err)
	}
	return ids, nil
}

// LastRefresh returns the newest write time across all cached games.
func (s *SQLiteStore) LastRefresh(ctx context.Context) (time.Time, error) {
	var latest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(cached_at) FROM cached_games").Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query last refresh: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, ErrNotFound
	}
	return time.UnixMilli(latest.Int64).UTC(), nil
}

// Close is a no-op; DB lifecycle is managed by storage layer.
func (s *SQLiteStore) Close() error {
	return nil
}

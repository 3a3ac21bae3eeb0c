package gamecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bggcache/internal/core"
)

// PostgreSQLStore stores cached games in PostgreSQL.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates the cached_games table and index if needed.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cached_games (
			id BIGINT PRIMARY KEY,
			cached_at BIGINT NOT NULL,
			data JSONB NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create cached_games table: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_cached_games_cached_at ON cached_games(cached_at)"); err != nil {
		return nil, fmt.Errorf("failed to create cached_games cached_at index: %w", err)
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// Get returns a cached game by id.
func (s *PostgreSQLStore) Get(ctx context.Context, id int) (*core.Game, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM cached_games WHERE id = $1", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query game: %w", err)
	}

	game, err := deserializeGame(payload)
	if err != nil {
		return nil, fmt.Errorf("decode game %d: %w", id, err)
	}
	return game, nil
}

// Upsert inserts or replaces a cached game.
func (s *PostgreSQLStore) Upsert(ctx context.Context, game *core.Game, cachedAt time.Time) error {
	payload, err := serializeGame(game)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO cached_games (id, cached_at, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET cached_at = EXCLUDED.cached_at, data = EXCLUDED.data
	`, game.ID, cachedAt.UnixMilli(), payload)
	if err != nil {
		return fmt.Errorf("upsert game %d: %w", game.ID, err)
	}
	return nil
}

// StaleIDs returns ids written before cutoff, oldest first.
func (s *PostgreSQLStore) StaleIDs(ctx context.Context, cutoff time.Time) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id FROM cached_games WHERE cached_at < $1 ORDER BY cached_at, id", cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list stale games: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale game row: %w", err)
		}
		ids = append(ids, int(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale game rows: %w", err)
	}
	return ids, nil
}

// LastRefresh returns the newest write time across all cached games.
func (s *PostgreSQLStore) LastRefresh(ctx context.Context) (time.Time, error) {
	var latest *int64
	if err := s.pool.QueryRow(ctx, "SELECT MAX(cached_at) FROM cached_games").Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query last refresh: %w", err)
	}
	if latest == nil {
		return time.Time{}, ErrNotFound
	}
	return time.UnixMilli(*latest).UTC(), nil
}

// Close is a no-op; pool lifecycle is managed by storage layer.
func (s *PostgreSQLStore) Close() error {
	return nil
}

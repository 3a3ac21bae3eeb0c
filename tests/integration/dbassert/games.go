//go:build integration

// Package dbassert reads game cache rows straight from the databases so
// integration tests can assert on persisted state.
package dbassert

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// CachedGame is one persisted game cache row.
type CachedGame struct {
	ID       int
	CachedAt time.Time
	Data     map[string]any
}

// QueryCachedGame returns the row for id from PostgreSQL, or nil.
func QueryCachedGame(t *testing.T, pool *pgxpool.Pool, id int) *CachedGame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var cachedAt int64
	var data []byte
	err := pool.QueryRow(ctx, "SELECT cached_at, data FROM cached_games WHERE id = $1", id).Scan(&cachedAt, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	require.NoError(t, err, "failed to query cached game")

	return &CachedGame{ID: id, CachedAt: time.UnixMilli(cachedAt), Data: decode(t, data)}
}

// QueryCachedGameMongo returns the document for id from MongoDB, or nil.
func QueryCachedGameMongo(t *testing.T, db *mongo.Database, id int) *CachedGame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc struct {
		CachedAt int64  `bson:"cached_at"`
		Data     []byte `bson:"data"`
	}
	err := db.Collection("cached_games").FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	require.NoError(t, err, "failed to query cached game from MongoDB")

	return &CachedGame{ID: id, CachedAt: time.UnixMilli(doc.CachedAt), Data: decode(t, doc.Data)}
}

// CountCachedGames returns the number of cached games in PostgreSQL.
func CountCachedGames(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM cached_games").Scan(&count)
	require.NoError(t, err, "failed to count cached games")
	return count
}

// CountCachedGamesMongo returns the number of cached games in MongoDB.
func CountCachedGamesMongo(t *testing.T, db *mongo.Database) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := db.Collection("cached_games").CountDocuments(ctx, bson.M{})
	require.NoError(t, err, "failed to count cached games in MongoDB")
	return int(count)
}

// ClearCachedGames empties the PostgreSQL table if it exists.
func ClearCachedGames(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, "DROP TABLE IF EXISTS cached_games")
	require.NoError(t, err, "failed to clear cached games")
}

// ClearCachedGamesMongo drops the MongoDB collection.
func ClearCachedGamesMongo(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, db.Collection("cached_games").Drop(ctx), "failed to clear cached games in MongoDB")
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "cached game payload is not JSON")
	return out
}

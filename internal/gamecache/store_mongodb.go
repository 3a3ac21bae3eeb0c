package gamecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"bggcache/internal/core"
)

type mongoGameDocument struct {
	ID       int64  `bson:"_id"`
	CachedAt int64  `bson:"cached_at"`
	Data     []byte `bson:"data"`
}

// MongoDBStore stores cached games in MongoDB.
type MongoDBStore struct {
	collection *mongo.Collection
}

// NewMongoDBStore creates collection indexes if needed.
func NewMongoDBStore(database *mongo.Database) (*MongoDBStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}

	coll := database.Collection("cached_games")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	index := mongo.IndexModel{Keys: bson.D{{Key: "cached_at", Value: 1}}}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		return nil, fmt.Errorf("create cached_games index: %w", err)
	}

	return &MongoDBStore{collection: coll}, nil
}

// Get returns a cached game by id.
func (s *MongoDBStore) Get(ctx context.Context, id int) (*core.Game, error) {
	var doc mongoGameDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query game: %w", err)
	}

	game, err := deserializeGame(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode game %d: %w", id, err)
	}
	return game, nil
}

// Upsert replaces the whole document for the game id.
func (s *MongoDBStore) Upsert(ctx context.Context, game *core.Game, cachedAt time.Time) error {
	payload, err := serializeGame(game)
	if err != nil {
		return err
	}

	doc := mongoGameDocument{
		ID:       int64(game.ID),
		CachedAt: cachedAt.UnixMilli(),
		Data:     payload,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("upsert game %d: %w", game.ID, err)
	}
	return nil
}

// StaleIDs returns ids written before cutoff, oldest first.
func (s *MongoDBStore) StaleIDs(ctx context.Context, cutoff time.Time) ([]int, error) {
	filter := bson.M{"cached_at": bson.M{"$lt": cutoff.UnixMilli()}}
	opts := options.Find().
		SetSort(bson.D{{Key: "cached_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1, "cached_at": 1})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list stale games: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []int
	for cursor.Next(ctx) {
		var doc mongoGameDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode stale game document: %w", err)
		}
		ids = append(ids, int(doc.ID))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale games cursor: %w", err)
	}
	return ids, nil
}

// LastRefresh returns the newest write time across all cached games.
func (s *MongoDBStore) LastRefresh(ctx context.Context) (time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "cached_at", Value: -1}}).
		SetProjection(bson.M{"cached_at": 1})

	var doc mongoGameDocument
	if err := s.collection.FindOne(ctx, bson.M{}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("query last refresh: %w", err)
	}
	return time.UnixMilli(doc.CachedAt).UTC(), nil
}

// Close is a no-op; Mongo client lifecycle is managed by storage layer.
func (s *MongoDBStore) Close() error {
	return nil
}

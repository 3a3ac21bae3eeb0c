package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const mongoDisconnectTimeout = 5 * time.Second

type mongoStorage struct {
	noHandles
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoDB connects, pings the primary and selects the configured database.
func NewMongoDB(ctx context.Context, cfg MongoDBConfig) (Storage, error) {
	if cfg.URL == "" {
		return nil, errors.New("mongodb url is required")
	}
	name := cfg.Database
	if name == "" {
		name = DefaultMongoDatabase
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &mongoStorage{client: client, database: client.Database(name)}, nil
}

func (s *mongoStorage) Type() string                   { return TypeMongoDB }
func (s *mongoStorage) MongoDatabase() *mongo.Database { return s.database }

func (s *mongoStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Package storage provides the shared database connection behind the game
// cache. The backend is a deployment decision selected by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Backend names accepted in Config.Type.
const (
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
	// TypeMemory keeps everything in process; nothing survives a restart.
	TypeMemory = "memory"
)

// DefaultSQLitePath is used when no SQLite path is configured.
const DefaultSQLitePath = "data/bggcache.db"

// DefaultMongoDatabase is used when no MongoDB database name is configured.
const DefaultMongoDatabase = "bggcache"

// Config selects and configures the game cache backend.
type Config struct {
	Type string

	SQLite     SQLiteConfig
	PostgreSQL PostgreSQLConfig
	MongoDB    MongoDBConfig
}

// SQLiteConfig locates the database file.
type SQLiteConfig struct {
	Path string
}

// PostgreSQLConfig holds the connection string and pool size.
type PostgreSQLConfig struct {
	URL      string
	MaxConns int
}

// MongoDBConfig holds the connection string and database name.
type MongoDBConfig struct {
	URL      string
	Database string
}

// Storage is an open connection to one backend. Only the accessor matching
// Type returns a non-nil handle. Implementations are safe for concurrent use.
type Storage interface {
	Type() string

	SQLiteDB() *sql.DB
	PostgreSQLPool() *pgxpool.Pool
	MongoDatabase() *mongo.Database

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error

	Close() error
}

// New opens the backend named by cfg.Type. An empty type means SQLite.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeSQLite, "":
		return NewSQLite(ctx, cfg.SQLite)
	case TypePostgreSQL:
		return NewPostgreSQL(ctx, cfg.PostgreSQL)
	case TypeMongoDB:
		return NewMongoDB(ctx, cfg.MongoDB)
	case TypeMemory:
		return Memory(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s (valid: sqlite, postgresql, mongodb, memory)", cfg.Type)
	}
}

// DefaultConfig returns the SQLite configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Type:       TypeSQLite,
		SQLite:     SQLiteConfig{Path: DefaultSQLitePath},
		PostgreSQL: PostgreSQLConfig{MaxConns: 10},
		MongoDB:    MongoDBConfig{Database: DefaultMongoDatabase},
	}
}

// Memory returns a Storage without a connection. Stores built on it keep
// their state in process.
func Memory() Storage { return memoryStorage{} }

type memoryStorage struct{}

func (memoryStorage) Type() string                   { return TypeMemory }
func (memoryStorage) SQLiteDB() *sql.DB              { return nil }
func (memoryStorage) PostgreSQLPool() *pgxpool.Pool  { return nil }
func (memoryStorage) MongoDatabase() *mongo.Database { return nil }
func (memoryStorage) Ping(context.Context) error     { return nil }
func (memoryStorage) Close() error                   { return nil }

// noHandles is embedded by the connected backends so each only overrides
// the accessor it serves.
type noHandles struct{}

func (noHandles) SQLiteDB() *sql.DB              { return nil }
func (noHandles) PostgreSQLPool() *pgxpool.Pool  { return nil }
func (noHandles) MongoDatabase() *mongo.Database { return nil }

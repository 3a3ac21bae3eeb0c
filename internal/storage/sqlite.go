package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// sqlitePragmas turn on WAL so request reads proceed while the refresher
// writes, and make writers wait on the lock instead of failing.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

type sqliteStorage struct {
	noHandles
	db *sql.DB
}

// NewSQLite opens the database file, creating it and its directory if needed.
func NewSQLite(ctx context.Context, cfg SQLiteConfig) (Storage, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?"+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &sqliteStorage{db: db}, nil
}

func (s *sqliteStorage) Type() string      { return TypeSQLite }
func (s *sqliteStorage) SQLiteDB() *sql.DB { return s.db }

func (s *sqliteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

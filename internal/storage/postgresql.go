package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStorage struct {
	noHandles
	pool *pgxpool.Pool
}

// NewPostgreSQL opens a connection pool and checks it with a ping.
func NewPostgreSQL(ctx context.Context, cfg PostgreSQLConfig) (Storage, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgresql url is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgresql url: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgresql pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgresql: %w", err)
	}
	return &postgresStorage{pool: pool}, nil
}

func (s *postgresStorage) Type() string                  { return TypePostgreSQL }
func (s *postgresStorage) PostgreSQLPool() *pgxpool.Pool { return s.pool }

func (s *postgresStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresStorage) Close() error {
	s.pool.Close()
	return nil
}

package gamecache

import (
	"context"
	"errors"
	"fmt"

	"bggcache/internal/storage"
)

// Result is a game store together with the connection it was built on.
type Result struct {
	Store   Store
	Storage storage.Storage

	// owned is set when Close should also close Storage.
	owned bool
}

// Ping reports whether the backing database is reachable.
func (r *Result) Ping(ctx context.Context) error {
	return r.Storage.Ping(ctx)
}

// Close releases the store and, when owned, the connection under it.
func (r *Result) Close() error {
	var errs []error
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	if r.owned {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// New opens the backend described by cfg and builds a game store on it.
// The returned Result owns the connection.
func New(ctx context.Context, cfg storage.Config) (*Result, error) {
	st, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open game cache storage: %w", err)
	}

	store, err := createStore(ctx, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &Result{Store: store, Storage: st, owned: true}, nil
}

// NewWithSharedStorage builds a game store on a connection owned elsewhere.
func NewWithSharedStorage(ctx context.Context, shared storage.Storage) (*Result, error) {
	if shared == nil {
		return nil, errors.New("shared storage is required")
	}
	store, err := createStore(ctx, shared)
	if err != nil {
		return nil, err
	}
	return &Result{Store: store, Storage: shared}, nil
}

func createStore(ctx context.Context, st storage.Storage) (Store, error) {
	switch st.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(st.SQLiteDB())
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, st.PostgreSQLPool())
	case storage.TypeMongoDB:
		return NewMongoDBStore(st.MongoDatabase())
	case storage.TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", st.Type())
	}
}

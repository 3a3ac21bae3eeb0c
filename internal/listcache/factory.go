package listcache

import (
	"fmt"
	"time"
)

// Store type constants
const (
	TypeLocal  = "local"
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

// DefaultLocalPath is used when no local cache path is configured.
const DefaultLocalPath = ".cache/game_lists.json"

// Config selects and configures the list cache backend.
type Config struct {
	// Type is "local", "redis" or "memory" (default: local)
	Type string
	// LocalPath is the JSON file used by the local backend
	LocalPath string
	Redis     RedisConfig
	TTL       time.Duration
}

// New builds a Cache over the configured backend.
func New(cfg Config, opts ...Option) (*Cache, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	return NewCache(store, cfg.TTL, opts...), nil
}

func newStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeLocal, "":
		path := cfg.LocalPath
		if path == "" {
			path = DefaultLocalPath
		}
		return NewLocalStore(path), nil
	case TypeRedis:
		if cfg.Redis.URL == "" {
			return nil, fmt.Errorf("redis list cache requires a URL")
		}
		return NewRedisStore(cfg.Redis)
	case TypeMemory:
		ttl := cfg.TTL
		if ttl <= 0 {
			ttl = DefaultTTL
		}
		return NewMemoryStore(DefaultMemorySize, ttl), nil
	default:
		return nil, fmt.Errorf("unknown list cache type: %s (valid: local, redis, memory)", cfg.Type)
	}
}

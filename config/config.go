// Package config provides configuration management for the application.
//
// Values are layered, lowest precedence first: built-in defaults, an optional
// YAML file, a .env file, then the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPaths are tried in order when CONFIG_FILE is not set.
var DefaultConfigPaths = []string{"config/config.yaml", "config.yaml"}

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	ListCache ListCacheConfig `yaml:"list_cache"`
	GameCache GameCacheConfig `yaml:"game_cache"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	BGG       BGGConfig       `yaml:"bgg"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port             string   `yaml:"port"`
	CORSAllowOrigins []string `yaml:"cors_allow_origins"`
}

// LoggingConfig selects the log handler.
type LoggingConfig struct {
	// Format is "json", "pretty" or "auto"
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// StorageConfig selects the game cache database.
type StorageConfig struct {
	// Type is "sqlite", "postgresql", "mongodb" or "memory"
	Type             string `yaml:"type"`
	SQLitePath       string `yaml:"sqlite_path"`
	PostgresURL      string `yaml:"postgres_url"`
	PostgresMaxConns int    `yaml:"postgres_max_conns"`
	MongoDBURL       string `yaml:"mongodb_url"`
	MongoDBDatabase  string `yaml:"mongodb_database"`
}

// ListCacheConfig selects the game-list cache backend.
type ListCacheConfig struct {
	// Type is "local", "redis" or "memory"
	Type           string   `yaml:"type"`
	Path           string   `yaml:"path"`
	RedisURL       string   `yaml:"redis_url"`
	RedisKeyPrefix string   `yaml:"redis_key_prefix"`
	TTL            Duration `yaml:"ttl"`
}

// GameCacheConfig holds game cache settings.
type GameCacheConfig struct {
	// TTL is the age after which a cached game is considered stale.
	TTL Duration `yaml:"ttl"`
}

// RefreshConfig controls the background refresher.
type RefreshConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Interval  Duration `yaml:"interval"`
	BatchSize int      `yaml:"batch_size"`
}

// BGGConfig configures the upstream API clients.
type BGGConfig struct {
	BaseURL       string   `yaml:"base_url"`
	LegacyBaseURL string   `yaml:"legacy_base_url"`
	APIToken      string   `yaml:"api_token"`
	MaxRetries    int      `yaml:"max_retries"`
	RetryDelay    Duration `yaml:"retry_delay"`
	Timeout       Duration `yaml:"timeout"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Duration is a time.Duration that also accepts plain integer seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML accepts "90s", "2h" or 7200.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             "8080",
			CORSAllowOrigins: []string{"*"},
		},
		Logging: LoggingConfig{Format: "auto", Level: "info"},
		Storage: StorageConfig{
			Type:             "sqlite",
			SQLitePath:       "data/bggcache.db",
			PostgresMaxConns: 10,
			MongoDBDatabase:  "bggcache",
		},
		ListCache: ListCacheConfig{
			Type:           "local",
			Path:           ".cache/game_lists.json",
			RedisKeyPrefix: "bggcache:lists:",
			TTL:            Duration(24 * time.Hour),
		},
		GameCache: GameCacheConfig{TTL: Duration(168 * time.Hour)},
		Refresh: RefreshConfig{
			Enabled:   true,
			Interval:  Duration(2 * time.Hour),
			BatchSize: 20,
		},
		BGG: BGGConfig{
			BaseURL:       "https://boardgamegeek.com/xmlapi2",
			LegacyBaseURL: "https://boardgamegeek.com/xmlapi",
			MaxRetries:    6,
			RetryDelay:    Duration(10 * time.Second),
			Timeout:       Duration(60 * time.Second),
		},
		Metrics: MetricsConfig{Enabled: true, Endpoint: "/metrics"},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(cfg); err != nil {
		return nil, err
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(cfg *Config) error {
	paths := DefaultConfigPaths
	explicit := os.Getenv("CONFIG_FILE")
	if explicit != "" {
		paths = []string{explicit}
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) && explicit == "" {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return nil
	}
	return nil
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString resolves ${VAR} and ${VAR:-default} placeholders. A variable
// that is unset or empty and has no default is left as written.
func expandString(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholder.FindStringSubmatch(match)
		if v := os.Getenv(parts[1]); v != "" {
			return v
		}
		if parts[2] != "" {
			return parts[3]
		}
		return match
	})
}

func applyEnv(cfg *Config) error {
	v := viper.New()
	v.AutomaticEnv()

	for key, set := range envBindings(cfg) {
		if !v.IsSet(key) {
			continue
		}
		if err := set(v.GetString(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func envBindings(cfg *Config) map[string]func(string) error {
	return map[string]func(string) error{
		"PORT":                stringVar(&cfg.Server.Port),
		"CORS_ALLOW_ORIGINS":  listVar(&cfg.Server.CORSAllowOrigins),
		"LOG_FORMAT":          stringVar(&cfg.Logging.Format),
		"LOG_LEVEL":           stringVar(&cfg.Logging.Level),
		"STORAGE_TYPE":        stringVar(&cfg.Storage.Type),
		"SQLITE_PATH":         stringVar(&cfg.Storage.SQLitePath),
		"POSTGRES_URL":        stringVar(&cfg.Storage.PostgresURL),
		"POSTGRES_MAX_CONNS":  intVar(&cfg.Storage.PostgresMaxConns),
		"MONGODB_URL":         stringVar(&cfg.Storage.MongoDBURL),
		"MONGODB_DATABASE":    stringVar(&cfg.Storage.MongoDBDatabase),
		"LIST_CACHE_TYPE":     stringVar(&cfg.ListCache.Type),
		"LIST_CACHE_PATH":     stringVar(&cfg.ListCache.Path),
		"REDIS_URL":           stringVar(&cfg.ListCache.RedisURL),
		"REDIS_KEY_PREFIX":    stringVar(&cfg.ListCache.RedisKeyPrefix),
		"LIST_CACHE_TTL":      durationVar(&cfg.ListCache.TTL),
		"GAME_CACHE_TTL":      durationVar(&cfg.GameCache.TTL),
		"REFRESH_ENABLED":     boolVar(&cfg.Refresh.Enabled),
		"REFRESH_INTERVAL":    durationVar(&cfg.Refresh.Interval),
		"REFRESH_BATCH_SIZE":  intVar(&cfg.Refresh.BatchSize),
		"BGG_BASE_URL":        stringVar(&cfg.BGG.BaseURL),
		"BGG_LEGACY_BASE_URL": stringVar(&cfg.BGG.LegacyBaseURL),
		"BGG_API_TOKEN":       stringVar(&cfg.BGG.APIToken),
		"BGG_MAX_RETRIES":     intVar(&cfg.BGG.MaxRetries),
		"BGG_RETRY_DELAY":     durationVar(&cfg.BGG.RetryDelay),
		"BGG_TIMEOUT":         durationVar(&cfg.BGG.Timeout),
		"METRICS_ENABLED":     boolVar(&cfg.Metrics.Enabled),
		"METRICS_ENDPOINT":    stringVar(&cfg.Metrics.Endpoint),
	}
}

func stringVar(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func intVar(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func boolVar(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func durationVar(dst *Duration) func(string) error {
	return func(v string) error {
		d, err := parseDuration(v)
		if err != nil {
			return err
		}
		*dst = Duration(d)
		return nil
	}
}

func listVar(dst *[]string) func(string) error {
	return func(v string) error {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
		return nil
	}
}

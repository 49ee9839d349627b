// Package config provides configuration management for seedgraph.
//
// Settings come from defaults, an optional YAML file, and environment
// variables with the SEEDGRAPH_ prefix, in increasing order of precedence.
// Nested keys map to variables by joining with underscores, for example
// storage.postgres.dsn is SEEDGRAPH_STORAGE_POSTGRES_DSN.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SEEDGRAPH"

// Storage engines.
const (
	EngineMemory   = "memory"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineBadger   = "badger"
	EngineNeo4j    = "neo4j"
)

// Engines lists the supported storage engines.
var Engines = []string{EngineMemory, EngineSQLite, EnginePostgres, EngineBadger, EngineNeo4j}

// Config holds all configuration settings for seedgraph.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error (default: info)
	Format string `mapstructure:"format"` // text or json (default: text)
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"` // default: 127.0.0.1
	Port            int           `mapstructure:"port"` // default: 6464
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Engine   string         `mapstructure:"engine"` // default: sqlite
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Badger   BadgerConfig   `mapstructure:"badger"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"` // default: ./data/seedgraph.db
}

type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type BadgerConfig struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// BreakerConfig configures the storage circuit breaker.
type BreakerConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	MaxFailures          uint32        `mapstructure:"max_failures"`
	Timeout              time.Duration `mapstructure:"timeout"`
	HalfOpenMaxSuccesses uint32        `mapstructure:"half_open_max_successes"`
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	Mode     string `mapstructure:"mode"` // development or production (default: development)
	APIToken string `mapstructure:"api_token"`
}

// RateLimitConfig configures per-client request rate limiting.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// NewViper returns a viper instance with seedgraph defaults and environment
// binding applied.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 6464)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.engine", EngineSQLite)
	v.SetDefault("storage.sqlite.path", "./data/seedgraph.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.max_open_conns", 25)
	v.SetDefault("storage.postgres.max_idle_conns", 5)
	v.SetDefault("storage.postgres.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("storage.badger.dir", "./data/badger")
	v.SetDefault("storage.badger.in_memory", false)
	v.SetDefault("storage.neo4j.uri", "")
	v.SetDefault("storage.neo4j.username", "neo4j")
	v.SetDefault("storage.neo4j.password", "")
	v.SetDefault("storage.neo4j.database", "neo4j")

	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.half_open_max_successes", 2)

	v.SetDefault("security.mode", "development")
	v.SetDefault("security.api_token", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 600)
	v.SetDefault("rate_limit.burst", 50)
}

// Load reads the configuration. If path is non-empty the YAML file there is
// merged over the defaults. Environment variables take precedence over both.
// The result is validated.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unable to decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if !slices.Contains(Engines, c.Storage.Engine) {
		return fmt.Errorf("config: unknown storage engine %q (want one of %s)",
			c.Storage.Engine, strings.Join(Engines, ", "))
	}
	switch c.Storage.Engine {
	case EnginePostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("config: storage.postgres.dsn is required for the postgres engine")
		}
	case EngineNeo4j:
		if c.Storage.Neo4j.URI == "" {
			return fmt.Errorf("config: storage.neo4j.uri is required for the neo4j engine")
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	switch c.Security.Mode {
	case "development":
	case "production":
		if c.Security.APIToken == "" {
			return fmt.Errorf("config: security.api_token is required in production mode")
		}
	default:
		return fmt.Errorf("config: unknown security mode %q", c.Security.Mode)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("config: rate_limit.requests_per_minute and rate_limit.burst must be positive")
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

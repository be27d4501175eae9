// Package config loads the catalog configuration from CATALOG_* environment
// variables and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix prefixes every environment variable, e.g. CATALOG_STORAGE_DRIVER.
const EnvPrefix = "CATALOG"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is the resolved application configuration.
type Config struct {
	Log     LogConfig
	Storage StorageConfig
	Cache   CacheConfig
	Catalog CatalogConfig
}

type LogConfig struct {
	Level       string
	Development bool
}

type StorageConfig struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
	Migrate          bool
}

// CacheConfig sizes the read-through store cache. Size 0 disables it.
type CacheConfig struct {
	Size   int
	Listen bool
}

type CatalogConfig struct {
	FallbackLanguage string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.max_conns", 10)
	v.SetDefault("storage.min_conns", 1)
	v.SetDefault("storage.statement_timeout", 30*time.Second)
	v.SetDefault("storage.migrate", true)

	v.SetDefault("cache.size", 4096)
	v.SetDefault("cache.listen", false)

	v.SetDefault("catalog.fallback_language", "en")
}

// Load reads the configuration. A non-empty file is read first; environment
// variables override it.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Storage: StorageConfig{
			Driver:           strings.ToLower(v.GetString("storage.driver")),
			DSN:              v.GetString("storage.dsn"),
			MaxConns:         v.GetInt32("storage.max_conns"),
			MinConns:         v.GetInt32("storage.min_conns"),
			StatementTimeout: v.GetDuration("storage.statement_timeout"),
			Migrate:          v.GetBool("storage.migrate"),
		},
		Cache: CacheConfig{
			Size:   v.GetInt("cache.size"),
			Listen: v.GetBool("cache.listen"),
		},
		Catalog: CatalogConfig{
			FallbackLanguage: strings.ToLower(v.GetString("catalog.fallback_language")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the %s driver", DriverPostgres)
		}
		if c.Storage.MaxConns < 1 || c.Storage.MinConns < 0 || c.Storage.MinConns > c.Storage.MaxConns {
			return fmt.Errorf("invalid pool size: min %d, max %d", c.Storage.MinConns, c.Storage.MaxConns)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative")
	}
	if c.Cache.Listen && c.Storage.Driver != DriverPostgres {
		return fmt.Errorf("cache.listen requires the %s driver", DriverPostgres)
	}

	if len(c.Catalog.FallbackLanguage) != 2 {
		return fmt.Errorf("catalog.fallback_language must be a two-letter code, got %q", c.Catalog.FallbackLanguage)
	}
	if _, err := language.ParseBase(c.Catalog.FallbackLanguage); err != nil {
		return fmt.Errorf("catalog.fallback_language: %w", err)
	}
	return nil
}

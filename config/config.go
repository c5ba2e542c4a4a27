// Package config loads the settings the core consumes: relational and
// document store connections, cache sizing, and the low-stock threshold.
// Values come from the environment with an optional .env file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int    `mapstructure:"DB_MAX_CONNS"`
	DBIdleConns int    `mapstructure:"DB_IDLE_CONNS"`

	// MongoURI empty disables the document adapter.
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	RoundTripTimeout time.Duration `mapstructure:"ROUND_TRIP_TIMEOUT"`

	CacheCapacity int           `mapstructure:"CACHE_CAPACITY"`
	CacheShards   int           `mapstructure:"CACHE_SHARDS"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	LowStockThreshold int `mapstructure:"LOW_STOCK_THRESHOLD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_IDLE_CONNS", 5)
	v.SetDefault("MONGO_DATABASE", "clinic")
	v.SetDefault("ROUND_TRIP_TIMEOUT", "5s")
	v.SetDefault("CACHE_CAPACITY", 10000)
	v.SetDefault("CACHE_SHARDS", 64)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)

	// Bind env vars explicitly so Unmarshal picks them up.
	for _, key := range []string{
		"DATABASE_URL", "DB_MAX_CONNS", "DB_IDLE_CONNS",
		"MONGO_URI", "MONGO_DATABASE",
		"ROUND_TRIP_TIMEOUT",
		"CACHE_CAPACITY", "CACHE_SHARDS", "CACHE_TTL",
		"LOW_STOCK_THRESHOLD",
	} {
		_ = v.BindEnv(key)
	}

	// A missing .env file is fine; the environment still applies.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.LowStockThreshold < 0 {
		return nil, fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}

	return cfg, nil
}

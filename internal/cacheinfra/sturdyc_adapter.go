// Package cacheinfra adapts the sturdyc in-process cache to the CacheService
// contract used by the entity cache layer.
package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the settings for the sturdyc cache adapter.
type Config struct {
	// Capacity is the maximum number of entries the cache can hold.
	Capacity int

	// NumShards determines how many shards back the cache. Higher values
	// improve concurrency at the cost of memory.
	NumShards int

	// TTL is the time-to-live for cached entries.
	TTL time.Duration

	// EvictionPercentage is the share of entries (1-100) evicted when the
	// cache reaches capacity.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are collected.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration

	// MissingRecordStorage remembers keys that resolved to no record, so
	// repeated point lookups for absent rows do not reach the database.
	MissingRecordStorage bool
}

// DefaultConfig returns settings suited to a single-process record cache:
// generous TTL, no asynchronous refresh (writes invalidate explicitly, and a
// background refresh would race the coherence guarantee).
func DefaultConfig() Config {
	return Config{
		Capacity:             10000,
		NumShards:            64,
		TTL:                  10 * time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: true,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

func (c Config) toSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cache config error in field " + e.Field + ": " + e.Message
}

// sturdycService implements cache.CacheService on top of a sturdyc client.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds the sturdyc-backed cache service.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.toSturdycOptions()...,
	)

	return &sturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key, invoking fetch and storing its
// result on a miss.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	return s.client.GetOrFetch(ctx, key, fetch)
}

// Delete removes a single entry.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Size reports the number of live cache entries.
func (s *sturdycService) Size() int {
	return len(s.client.ScanKeys())
}

// CountPrefix reports how many entries live under a key prefix.
func (s *sturdycService) CountPrefix(prefix string) int {
	var n int
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n
}

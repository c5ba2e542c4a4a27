package cache

import "context"

// KeySerializer builds a cache key from a namespace, a method name, and
// arbitrary args. It must produce stable keys across calls so prefix-based
// invalidation works.
type KeySerializer interface {
	SerializeKey(namespace, method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from
// the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through caching operations the entity cache
// layer needs. It is exported so alternate backends can be dropped in.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error)
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix drops every entry whose key starts with prefix. This is
	// the whole-entity-type invalidation primitive: partial invalidation is
	// not a supported state.
	DeleteByPrefix(ctx context.Context, prefix string) error
	// Size reports the current number of cached entries.
	Size() int
	// CountPrefix reports how many entries live under a key prefix.
	CountPrefix(prefix string) int
}

// GetOrFetch is the type-safe wrapper over CacheService.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetch FetchFn[T]) (T, error) {
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, &TypeMismatchError{Key: key}
	}
	return typed, nil
}

// TypeMismatchError is returned when a cached value does not match the type
// requested for its key, which indicates two callers share a key namespace.
type TypeMismatchError struct {
	Key string
}

func (e *TypeMismatchError) Error() string {
	return "cache: value for key " + e.Key + " has unexpected type"
}

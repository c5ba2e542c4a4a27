// Package entitycache layers read-through caches over the relational
// adapter's entity stores. Per entity type three cache shapes coexist under
// one key namespace: a point cache (key → record), a full-collection cache,
// and any number of derived-index caches. Every write drops the whole
// namespace before returning; partial invalidation is not a supported state,
// so a read issued after a completed write always observes that write.
//
// The layer is single-process: writes made by another process or another
// instance of the store are invisible to it by design.
package entitycache

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hospitalworks/go-clinic-core/cache"
	"github.com/hospitalworks/go-clinic-core/store"
)

// IndexFn buckets a record for a derived-index cache, e.g. an appointment's
// calendar day.
type IndexFn[T any] func(rec *T) string

// Stats is a point-in-time snapshot of one entity type's cache layer.
type Stats struct {
	Lookups int64
	Hits    int64
	Misses  int64
	HitRate float64
	Entries int
}

// CachedStore decorates an EntityStore with the three cache shapes. Reads
// are read-through; writes pass through to the base store and then
// invalidate every cached view of the entity type.
type CachedStore[T any] struct {
	base      store.EntityStore[T]
	service   cache.CacheService
	keys      cache.KeySerializer
	namespace string
	indexes   map[string]IndexFn[T]
	lookups   *xsync.Counter
	misses    *xsync.Counter
}

// New builds the cache layer for one entity type. namespace must be unique
// per type; it prefixes every key and scopes invalidation.
func New[T any](namespace string, base store.EntityStore[T], service cache.CacheService, keys cache.KeySerializer) *CachedStore[T] {
	return &CachedStore[T]{
		base:      base,
		service:   service,
		keys:      keys,
		namespace: namespace,
		indexes:   make(map[string]IndexFn[T]),
		lookups:   xsync.NewCounter(),
		misses:    xsync.NewCounter(),
	}
}

// RegisterIndex adds a named derived-index cache. Must be called during
// wiring, before the store is shared between goroutines.
func (c *CachedStore[T]) RegisterIndex(name string, fn IndexFn[T]) {
	c.indexes[name] = fn
}

// Namespace returns the key namespace this store caches under.
func (c *CachedStore[T]) Namespace() string { return c.namespace }

// GetByID is the read-through point cache. Absence (nil, nil) is cached like
// any other result so repeated lookups of missing rows stay off the store.
func (c *CachedStore[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	return Read(ctx, c, "GetByID", id, func(ctx context.Context) (*T, error) {
		return c.base.GetByID(ctx, id)
	})
}

// GetAll is the read-through full-collection cache.
func (c *CachedStore[T]) GetAll(ctx context.Context) ([]T, error) {
	return Read(ctx, c, "GetAll", nil, func(ctx context.Context) ([]T, error) {
		return c.base.GetAll(ctx)
	})
}

// Search is not cached: query strings are unbounded and would flood the
// cache. It still counts as a read on the base store.
func (c *CachedStore[T]) Search(ctx context.Context, query string) ([]T, error) {
	return c.base.Search(ctx, query)
}

// ByIndex serves one bucket of a registered derived-index cache.
func (c *CachedStore[T]) ByIndex(ctx context.Context, name, bucket string) ([]T, error) {
	fn, ok := c.indexes[name]
	if !ok {
		return nil, fmt.Errorf("entitycache: no index %q registered for %s", name, c.namespace)
	}
	return Read(ctx, c, "Index::"+name, bucket, func(ctx context.Context) ([]T, error) {
		all, err := c.base.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		var out []T
		for i := range all {
			if fn(&all[i]) == bucket {
				out = append(out, all[i])
			}
		}
		return out, nil
	})
}

// Add writes through to the base store and invalidates the namespace.
func (c *CachedStore[T]) Add(ctx context.Context, rec *T) (int64, error) {
	id, err := c.base.Add(ctx, rec)
	if err == nil {
		c.Invalidate(ctx)
	}
	return id, err
}

// Update writes through to the base store and invalidates the namespace.
func (c *CachedStore[T]) Update(ctx context.Context, rec *T) error {
	err := c.base.Update(ctx, rec)
	if err == nil {
		c.Invalidate(ctx)
	}
	return err
}

// Delete writes through to the base store and invalidates the namespace.
func (c *CachedStore[T]) Delete(ctx context.Context, id int64) error {
	err := c.base.Delete(ctx, id)
	if err == nil {
		c.Invalidate(ctx)
	}
	return err
}

// Invalidate drops every cached view of this entity type: point, collection,
// and all derived indexes. The coordinator calls this after composite
// operations that bypass the layer.
func (c *CachedStore[T]) Invalidate(ctx context.Context) {
	// Invalidation never fails in-process; the error return on the service
	// exists for remote backends.
	_ = c.service.DeleteByPrefix(ctx, c.namespace+cache.KeySeparator)
}

// Stats snapshots the hit/miss counters and the live entry count for this
// entity type.
func (c *CachedStore[T]) Stats() Stats {
	lookups := c.lookups.Value()
	misses := c.misses.Value()
	hits := lookups - misses
	var rate float64
	if lookups > 0 {
		rate = float64(hits) / float64(lookups)
	}
	return Stats{
		Lookups: lookups,
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
		Entries: c.service.CountPrefix(c.namespace + cache.KeySeparator),
	}
}

// Read caches an arbitrary read under the store's namespace so custom
// lookups (email, date buckets) share the same invalidation scope and
// hit/miss accounting. A nil arg is allowed for nullary reads.
func Read[T, R any](ctx context.Context, c *CachedStore[T], method string, arg any, fetch func(ctx context.Context) (R, error)) (R, error) {
	var key string
	if arg == nil {
		key = c.keys.SerializeKey(c.namespace, method)
	} else {
		key = c.keys.SerializeKey(c.namespace, method, arg)
	}
	c.lookups.Inc()
	return cache.GetOrFetch(ctx, c.service, key, func(ctx context.Context) (R, error) {
		c.misses.Inc()
		return fetch(ctx)
	})
}

// Package cache provides the caching contract and key serialization used by
// the entity cache layer.
//
// It exports two interfaces and their default implementations:
//
//   - CacheService: read-through caching with whole-prefix invalidation
//   - KeySerializer: stable cache keys from namespace + method + arguments
//
// Keys are namespaced per entity type ("patients::GetByID::42"), which is
// what makes DeleteByPrefix a safe whole-entity-type invalidation primitive.
//
// Typical use through the typed wrapper:
//
//	patient, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (*model.Patient, error) {
//		return store.GetByID(ctx, 42)
//	})
//
// The default CacheService implementation lives in internal/cacheinfra and is
// backed by sturdyc; construct it with NewCacheService.
package cache

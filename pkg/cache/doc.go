// Package cache provides the storage layer behind the query client.
//
// A cached query result is an Entry addressed by a Key. Entries carry the
// JSON-encoded data, the time the data was fetched and a hard expiry after
// which the store drops them. Staleness is a separate, caller-chosen window
// (see Entry.IsFresh) so the same entry can be served as fresh to one reader
// and as stale placeholder data to another.
//
// Two Store implementations exist:
//
//   - MemoryStore keeps entries in process. It is the default.
//   - Manager keeps entries in Redis so several processes share one cache.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore()
//
//	key := cache.NewKey("students", "page", "2")
//
//	entry, err := cache.NewEntry(page, 5*time.Minute)
//	if err != nil {
//		return err
//	}
//	if err := store.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
//	entry, err = store.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # Redis
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewManager(redisClient)
//
// # Metrics
//
//   - cache_hits_total{layer} - Cache hits by layer (memory, redis)
//   - cache_misses_total{layer} - Cache misses by layer
//   - cache_entries{layer} - Entries held by the memory layer
//   - cache_errors_total{layer, operation} - Store operation errors
package cache

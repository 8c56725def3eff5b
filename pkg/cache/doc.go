// Package cache provides optional caching of issue search pages with a
// Redis backend.
//
// The issue search endpoint is a POST with no validators (no ETag, no
// Expires), so entries carry a locally configured TTL instead of a
// server-driven one. Caching is opt-in; a cache failure degrades to a
// direct fetch and never fails the pipeline.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager with a 10 minute TTL
//	manager := cache.NewManager(redisClient, 10*time.Minute)
//
//	// Create cache key
//	key := cache.Key{
//		Provider:     "gh",
//		Organization: "acme",
//		Repository:   "widgets",
//		Limit:        100,
//		Cursor:       "",
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from the API, then Set the body
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - codacy_cache_hits_total{layer="redis"} - Cache hits
//   - codacy_cache_misses_total - Cache misses
//   - codacy_cache_size_bytes{layer="redis"} - Cache size
//   - codacy_cache_errors_total{operation} - Cache operation errors
package cache

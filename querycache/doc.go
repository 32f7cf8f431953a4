// Package querycache provides a cache host for the memoize package.
//
// A Connection owns a query cache flag and a container of side stores keyed
// by slot. The memoizer asks it, on every call, whether caching is on and
// for the store under its slot. Stores are created lazily, by default as
// sturdyc backed in-memory caches.
//
// # Basic Usage
//
//	conn, err := querycache.New(querycache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	err = conn.Cache(ctx, func(ctx context.Context) error {
//		// memoized calls made with ctx hit the connection's store
//		_, err := table.Call(ctx, recv, "Load", id)
//		return err
//	})
//
// Cache enables the query cache for the duration of the block and restores
// the previous state on exit, even on error or panic. Results cached during
// a block that enabled the cache are dropped when it ends. Uncached does the
// reverse: it disables caching for the block and leaves entries in place.
//
// # Configuration
//
// LoadConfig reads the store settings from the environment:
//
//	MEMOIZE_QUERY_CACHE_CAPACITY=10000
//	MEMOIZE_QUERY_CACHE_NUM_SHARDS=64
//	MEMOIZE_QUERY_CACHE_TTL=5m
//	MEMOIZE_QUERY_CACHE_EVICTION_PERCENTAGE=10
//	MEMOIZE_QUERY_CACHE_EVICTION_INTERVAL=0s
//	MEMOIZE_QUERY_CACHE_ENABLED=false
//
// A zero eviction interval runs no background sweeper. Stores are emptied
// in place by ClearQueryCache and reused for the life of the connection.
package querycache

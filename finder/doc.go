// Package finder resolves entities stored across the shards of a
// shardset.ShardSet and keeps a cache-aside copy of every answer.
//
// # Routing
//
// Find picks the cheapest route for a Lookup:
//
//   - ByID always routes to the shard owning the id.
//   - A lookup naming the shard set's hash field routes to the shard owning
//     that field's value.
//   - Anything else fans out: the Dispatcher submits one ShardQueryTask per
//     read shard to a task.Service and returns the first match. Siblings are
//     cancelled as soon as a match arrives.
//
// # Caching
//
// Get consults the cache.Backend under "<namespace>::<cacheKey>". A hit is
// returned without touching any shard and its TTL is refreshed. A miss runs
// Find and stores the answer; absence is stored as cache.NullSentinel so
// repeated misses stay cheap. Every stored key is pushed onto the reference
// list of the identity it resolved to (cache.NullIdentity for absence), which
// is what Invalidate and InvalidateMissing walk. A fan-out where some shards
// failed and the others missed is reported as "not found" but never cached.
//
//	f, _ := finder.New(set, backend, dispatcher, finder.DefaultConfig())
//	acct, ok, err := f.Get(ctx, "email:a@b.com", finder.ByField{Field: "email", Value: "a@b.com"})
//
// Cache failures never fail a lookup: reads degrade to a miss and writes are
// logged and dropped.
//
// # Warming
//
// WarmTask runs a batch of lookups as a task.SerialTask, one per shard set at
// a time. Retries keep counting attempts through task.CarryForward or
// MergeWarm.
package finder

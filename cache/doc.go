// Package cache provides the cache backend contract, key building and value
// codecs used by the shard finders.
//
// # Overview
//
// This package exports:
//
//   - Backend: a TTL key-value store with reference lists
//   - KeySerializer: builds stable cache keys from method names and arguments
//   - Codec: converts entities to the string values a Backend stores
//
// NewBackend returns the default in-process implementation built on sturdyc.
//
// # Basic Usage
//
//	backend, err := cache.NewBackend(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	key := cache.Namespaced("accounts", "email::a@b.com")
//	_ = backend.Set(ctx, key, encoded, 20*time.Minute)
//	_ = backend.LPush(ctx, cache.RefKey("accounts", account.ID), key)
//
// # Negative Entries and Reference Lists
//
// A key whose lookup confirmed absence stores NullSentinel. Every key written
// is also pushed onto a reference list: the list for the entity's identity,
// or the list for NullIdentity for negative entries. Invalidating an entity
// means deleting every key on its list and then the list itself; no scan of
// the whole cache is needed.
//
// # Expiry
//
// sturdyc applies one TTL per client. The default backend records an expiry
// on every entry and treats expired entries as misses, so each finder can use
// its own TTL up to Config.TTL.
//
// # Key Serialization Strategy
//
// The default key serializer handles:
//
//   - fmt.Stringer values: their String form
//   - Basic types: direct %v representation
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key=value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//   - Functions and channels: %p, stable only within one process
package cache

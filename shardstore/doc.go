// Package shardstore provides shardset.DAO implementations:
//
//   - MemoryDAO keeps records in memory and counts the queries it serves.
//   - RepositoryDAO adapts the read side of a go-repository-bun repository.
//   - BunDAO queries a bun database directly; Open connects to sqlite:// and
//     postgres:// shard URLs.
package shardstore

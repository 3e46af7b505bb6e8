// Package shardset routes entities to the physical shard that owns them.
//
// A ShardSet hashes the value of its HashOn field into a logical space
// (DefaultLogicalSpace by default) and picks the read shard whose
// topology.ShardRange covers the result. When ranges overlap the one with
// the highest start wins; a shard flagged DefaultShard catches values no
// range covers.
//
// Each shard is reached through a DAO, the only storage contract this module
// depends on. Adapters live in the shardstore package.
package shardset

// Package topology holds the value types that describe a shard set: logical
// key ranges, the physical shards that serve them and a computed validity
// report.
//
// The package performs no I/O. Ranges are half-open intervals over a logical
// hash space [0, N). A value v belongs to a range when start <= v < end.
//
// # Ordering
//
// CompareRanges sorts by start descending and then end ascending, so a linear
// scan over sorted ranges meets the highest-start (most specific) range first.
// That matters while ranges overlap during a rebalance:
//
//	maps := []topology.ShardMap{a, b, c}
//	topology.SortShardMaps(maps)
//	for _, m := range maps {
//		if m.MapsShard(v) {
//			return m
//		}
//	}
//
// # Validity
//
// BuildStatus computes whether the read shards and the write shards each
// partition the logical space. Malformed ranges (start >= end) are rejected
// when a topology is built, never at lookup time.
package topology

package topology

import (
	"golang.org/x/exp/slices"
)

// ShardSetStatus is a read-only snapshot of a shard set's read and write
// layout. It is not mutated after BuildStatus returns it.
type ShardSetStatus struct {
	Name        string     `json:"name"`
	ReadShards  []ShardMap `json:"read_shards"`
	ReadValid   bool       `json:"read_valid"`
	WriteShards []ShardMap `json:"write_shards"`
	WriteValid  bool       `json:"write_valid"`
}

// IsValid reports whether both roles partition the logical space.
func (s ShardSetStatus) IsValid() bool {
	return s.ReadValid && s.WriteValid
}

// BuildStatus splits maps into read and write roles and checks that each
// role covers [0, space) with no gaps and no overlaps.
func BuildStatus(name string, maps []ShardMap, space int) ShardSetStatus {
	status := ShardSetStatus{Name: name}
	for _, m := range maps {
		if m.AllowRead {
			status.ReadShards = append(status.ReadShards, m)
		}
		if m.AllowWrite {
			status.WriteShards = append(status.WriteShards, m)
		}
	}
	SortShardMaps(status.ReadShards)
	SortShardMaps(status.WriteShards)

	status.ReadValid = partitions(status.ReadShards, space)
	status.WriteValid = partitions(status.WriteShards, space)
	return status
}

func partitions(maps []ShardMap, space int) bool {
	if len(maps) == 0 || space <= 0 {
		return false
	}

	ranges := make([]ShardRange, len(maps))
	for i, m := range maps {
		if m.Range.Validate() != nil {
			return false
		}
		ranges[i] = m.Range
	}
	slices.SortFunc(ranges, func(a, b ShardRange) int {
		return a.LogicalStart - b.LogicalStart
	})

	next := 0
	for _, r := range ranges {
		if r.LogicalStart != next {
			return false
		}
		next = r.LogicalEnd
	}
	return next == space
}

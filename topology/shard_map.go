package topology

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ShardMap describes one physical shard's participation in a shard set.
// Identity is (ShardSet, URL, Range).
type ShardMap struct {
	ShardSet     string     `json:"shard_set"`
	Range        ShardRange `json:"range"`
	URL          string     `json:"url"`
	AllowRead    bool       `json:"allow_read"`
	AllowWrite   bool       `json:"allow_write"`
	DefaultShard bool       `json:"default_shard"`
}

// MapsShard delegates to the shard's range.
func (m ShardMap) MapsShard(v int) bool {
	return m.Range.MapsShard(v)
}

// Key is a stable identity string for the map.
func (m ShardMap) Key() string {
	return fmt.Sprintf("%s|%s|%s", m.ShardSet, m.URL, m.Range)
}

// Equal compares identity only; availability flags are ignored.
func (m ShardMap) Equal(o ShardMap) bool {
	return m.ShardSet == o.ShardSet && m.URL == o.URL && m.Range == o.Range
}

func (m ShardMap) String() string {
	return fmt.Sprintf("%s@%s%s", m.ShardSet, m.URL, m.Range)
}

// SortShardMaps sorts maps in place by their ranges using CompareRanges.
func SortShardMaps(maps []ShardMap) {
	slices.SortStableFunc(maps, func(a, b ShardMap) int {
		return CompareRanges(a.Range, b.Range)
	})
}

// ValidateMaps rejects malformed ranges and duplicate identities.
func ValidateMaps(maps []ShardMap) error {
	seen := make(map[string]struct{}, len(maps))
	for _, m := range maps {
		if err := m.Range.Validate(); err != nil {
			return err
		}
		if _, dup := seen[m.Key()]; dup {
			return fmt.Errorf("duplicate shard map %s", m)
		}
		seen[m.Key()] = struct{}{}
	}
	return nil
}

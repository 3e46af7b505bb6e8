package topology

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"golang.org/x/exp/slices"
)

// ShardRange is a half-open interval [LogicalStart, LogicalEnd) over the
// logical hash space of a shard set.
type ShardRange struct {
	LogicalStart int `json:"logical_start"`
	LogicalEnd   int `json:"logical_end"`
}

// NewShardRange returns the range [start, end) or an INVALID_RANGE error when
// start >= end.
func NewShardRange(start, end int) (ShardRange, error) {
	r := ShardRange{LogicalStart: start, LogicalEnd: end}
	if err := r.Validate(); err != nil {
		return ShardRange{}, err
	}
	return r, nil
}

// Validate rejects empty and inverted ranges.
func (r ShardRange) Validate() error {
	if r.LogicalStart >= r.LogicalEnd {
		return faults.New(goerrors.CategoryValidation, faults.CodeInvalidRange,
			fmt.Sprintf("shard range %s: start must be lower than end", r)).
			WithMetadata(map[string]any{"start": r.LogicalStart, "end": r.LogicalEnd})
	}
	return nil
}

// MapsShard reports whether v falls inside the range.
func (r ShardRange) MapsShard(v int) bool {
	return r.LogicalStart <= v && v < r.LogicalEnd
}

// Size is the number of logical values covered.
func (r ShardRange) Size() int {
	return r.LogicalEnd - r.LogicalStart
}

func (r ShardRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.LogicalStart, r.LogicalEnd)
}

// CompareRanges orders ranges by start descending, then by end ascending.
// The first range of a sorted list is the most specific candidate when
// ranges overlap during a migration.
func CompareRanges(a, b ShardRange) int {
	switch {
	case a.LogicalStart > b.LogicalStart:
		return -1
	case a.LogicalStart < b.LogicalStart:
		return 1
	case a.LogicalEnd < b.LogicalEnd:
		return -1
	case a.LogicalEnd > b.LogicalEnd:
		return 1
	}
	return 0
}

// SortRanges sorts ranges in place using CompareRanges.
func SortRanges(ranges []ShardRange) {
	slices.SortStableFunc(ranges, CompareRanges)
}

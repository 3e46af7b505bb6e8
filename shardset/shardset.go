package shardset

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/goliatone/go-repository-shards/topology"
)

// Hasher maps a hash field value onto the logical space [0, space).
type Hasher func(value any, space int) int

// XXHasher hashes the value's string form with xxhash64.
func XXHasher(value any, space int) int {
	return int(xxhash.Sum64String(fmt.Sprint(value)) % uint64(space))
}

// Option customises a ShardSet.
type Option func(*options)

type options struct {
	hasher Hasher
}

// WithHasher replaces the default XXHasher.
func WithHasher(h Hasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

type shard[T any] struct {
	meta topology.ShardMap
	dao  DAO[T]
}

// ShardSet is the read-side accessor of a configured shard set: it knows the
// hash field, maps values onto shards and hands out the shard DAOs.
type ShardSet[T any] struct {
	cfg    Config
	hasher Hasher
	status topology.ShardSetStatus
	reads  []shard[T]
	dflt   int
}

// New validates cfg and binds every shard URL to its DAO.
func New[T any](cfg Config, daos map[string]DAO[T], opts ...Option) (*ShardSet[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{hasher: XXHasher}
	for _, opt := range opts {
		opt(&o)
	}

	set := &ShardSet[T]{
		cfg:    cfg,
		hasher: o.hasher,
		status: topology.BuildStatus(cfg.Name, cfg.Shards, cfg.LogicalSpace),
		dflt:   -1,
	}

	for _, m := range set.status.ReadShards {
		dao, ok := daos[m.URL]
		if !ok || dao == nil {
			return nil, faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig,
				"no DAO bound to shard "+m.String())
		}
		if m.DefaultShard && set.dflt < 0 {
			set.dflt = len(set.reads)
		}
		set.reads = append(set.reads, shard[T]{meta: m, dao: dao})
	}

	return set, nil
}

// Name is the shard set's configured name.
func (s *ShardSet[T]) Name() string { return s.cfg.Name }

// HashOn is the field that routes to a single shard.
func (s *ShardSet[T]) HashOn() string { return s.cfg.HashOn }

// Status returns the validity snapshot computed at construction.
func (s *ShardSet[T]) Status() topology.ShardSetStatus { return s.status }

// Logical maps value onto the logical space.
func (s *ShardSet[T]) Logical(value any) int {
	return s.hasher(value, s.cfg.LogicalSpace)
}

// ShardFor returns the read shard owning value. Ranges are scanned in
// CompareRanges order; the default shard catches values no range covers.
func (s *ShardSet[T]) ShardFor(value any) (topology.ShardMap, error) {
	sh, err := s.lookup(value)
	if err != nil {
		return topology.ShardMap{}, err
	}
	return sh.meta, nil
}

// DAO returns the DAO of the read shard owning value.
func (s *ShardSet[T]) DAO(value any) (DAO[T], error) {
	sh, err := s.lookup(value)
	if err != nil {
		return nil, err
	}
	return sh.dao, nil
}

// Shard pairs a shard's map with its DAO for fan-out.
type Shard[T any] struct {
	Map topology.ShardMap
	DAO DAO[T]
}

// ReadShards lists every read-enabled shard in CompareRanges order.
func (s *ShardSet[T]) ReadShards() []Shard[T] {
	out := make([]Shard[T], len(s.reads))
	for i, sh := range s.reads {
		out[i] = Shard[T]{Map: sh.meta, DAO: sh.dao}
	}
	return out
}

func (s *ShardSet[T]) lookup(value any) (*shard[T], error) {
	logical := s.Logical(value)
	for i := range s.reads {
		if s.reads[i].meta.MapsShard(logical) {
			return &s.reads[i], nil
		}
	}
	if s.dflt >= 0 {
		return &s.reads[s.dflt], nil
	}
	return nil, faults.New(goerrors.CategoryNotFound, faults.CodeShardNotFound,
		fmt.Sprintf("no read shard in %s owns logical value %d", s.cfg.Name, logical)).
		WithMetadata(map[string]any{"shard_set": s.cfg.Name, "logical": logical})
}

package finder

import (
	"context"
	"log/slog"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/cache"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/goliatone/go-repository-shards/shardset"
)

// DefaultTTL is how long a cached lookup lives unless configured otherwise.
const DefaultTTL = 20 * time.Minute

// Config holds the non generic knobs of a Finder.
type Config struct {
	// TTL applies to positive and negative entries alike.
	TTL time.Duration
	// CacheDisabled makes Get behave exactly like Find.
	CacheDisabled bool
	Logger        *slog.Logger
}

// DefaultConfig returns a Config with DefaultTTL and caching enabled.
func DefaultConfig() Config {
	return Config{TTL: DefaultTTL}
}

// Option customises the generic collaborators of a Finder.
type Option[T shardset.Shardable] func(*Finder[T])

// WithCodec replaces the msgpack entity codec.
func WithCodec[T shardset.Shardable](codec cache.Codec[T]) Option[T] {
	return func(f *Finder[T]) {
		if codec != nil {
			f.codec = codec
		}
	}
}

// WithKeySerializer replaces the key serializer Lookup derives keys with.
func WithKeySerializer[T shardset.Shardable](keys cache.KeySerializer) Option[T] {
	return func(f *Finder[T]) {
		if keys != nil {
			f.keys = keys
		}
	}
}

// WithTaskFactory replaces the factory used to build fan-out tasks.
func WithTaskFactory[T shardset.Shardable](factory FactoryFunc[T]) Option[T] {
	return func(f *Finder[T]) {
		if factory != nil {
			f.factory = factory
		}
	}
}

// Finder resolves entities of one shard set, caching every answer, including
// "not found", under caller supplied keys.
type Finder[T shardset.Shardable] struct {
	set        *shardset.ShardSet[T]
	backend    cache.Backend
	dispatcher *Dispatcher[T]
	codec      cache.Codec[T]
	keys       cache.KeySerializer
	factory    FactoryFunc[T]
	ns         string
	ttl        time.Duration
	disabled   bool
	logger     *slog.Logger
}

// New builds a Finder over set. backend may be nil only when caching is
// disabled.
func New[T shardset.Shardable](set *shardset.ShardSet[T], backend cache.Backend, dispatcher *Dispatcher[T], cfg Config, opts ...Option[T]) (*Finder[T], error) {
	switch {
	case set == nil:
		return nil, faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig, "finder needs a shard set")
	case dispatcher == nil:
		return nil, faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig, "finder needs a dispatcher")
	case backend == nil && !cfg.CacheDisabled:
		return nil, faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig, "finder needs a cache backend unless caching is disabled")
	case cfg.TTL < 0:
		return nil, faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig, "finder ttl must not be negative")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ns := namespace(set.Name())
	if ns == "" {
		return nil, faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig,
			"shard set name "+set.Name()+" yields an empty cache namespace")
	}

	f := &Finder[T]{
		set:        set,
		backend:    backend,
		dispatcher: dispatcher,
		codec:      cache.NewMsgpackCodec[T](),
		keys:       cache.NewDefaultKeySerializer(),
		factory:    NewUniqueFieldsFactory[T],
		ns:         ns,
		ttl:        ttl,
		disabled:   cfg.CacheDisabled,
		logger:     logger.With("component", "finder", "shard_set", set.Name()),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Name is the shard set name.
func (f *Finder[T]) Name() string { return f.set.Name() }

// Namespace is the cache key prefix of this finder.
func (f *Finder[T]) Namespace() string { return f.ns }

// Set returns the routed shard set.
func (f *Finder[T]) Set() *shardset.ShardSet[T] { return f.set }

// Find resolves lookup without the cache. ByID and lookups naming the hash
// field go straight to the owning shard; anything else fans out. A fan-out
// where some shards failed and the rest missed reports "not found".
func (f *Finder[T]) Find(ctx context.Context, lookup Lookup) (T, bool, error) {
	record, found, err := f.find(ctx, lookup)
	if faults.Code(err) == faults.CodeFanoutPartial {
		f.logger.Warn("lookup inconclusive, reporting not found", "error", err)
		var zero T
		return zero, false, nil
	}
	return record, found, err
}

func (f *Finder[T]) find(ctx context.Context, lookup Lookup) (T, bool, error) {
	var zero T
	lookup, err := normalize(lookup)
	if err != nil {
		return zero, false, err
	}

	if id, ok := lookup.(ByID); ok {
		dao, err := f.set.DAO(id.ID)
		if err != nil {
			return zero, false, err
		}
		return f.direct(dao.Get(ctx, id.ID))
	}

	fields := lookup.Fields()
	for _, field := range fields {
		if field.Name != f.set.HashOn() {
			continue
		}
		dao, err := f.set.DAO(field.Value)
		if err != nil {
			return zero, false, err
		}
		return f.direct(dao.FindByUniqueFields(ctx, fields...))
	}

	return f.dispatcher.QueryShardsUnique(ctx, f.factory(f.set, lookup.Method(), fields), lookup.Method())
}

func (f *Finder[T]) direct(record T, found bool, err error) (T, bool, error) {
	if err != nil {
		var zero T
		return zero, false, faults.Wrap(err, goerrors.CategoryExternal, faults.CodeShardQueryFailed,
			"query owning shard of "+f.set.Name())
	}
	return record, found, nil
}

// Get answers lookup from the cache under cacheKey, falling back to Find and
// caching its answer. Absence is cached as well, unless a shard failed while
// the others missed. A failing cache degrades to Find; only routing and query
// failures reach the caller.
func (f *Finder[T]) Get(ctx context.Context, cacheKey string, lookup Lookup) (T, bool, error) {
	if f.disabled {
		return f.Find(ctx, lookup)
	}

	var zero T
	key := cache.Namespaced(f.ns, cacheKey)

	value, hit, err := f.backend.Get(ctx, key)
	if err != nil {
		f.logger.Warn("cache read failed, querying shards", "key", key, "error", err)
		hit = false
	}

	if hit {
		if value == cache.NullSentinel {
			f.refresh(ctx, key, value)
			return zero, false, nil
		}
		record, err := f.codec.Decode(value)
		if err == nil {
			f.refresh(ctx, key, value)
			return record, true, nil
		}
		f.logger.Warn("cached value undecodable, querying shards", "key", key, "error", err)
	}

	record, found, err := f.find(ctx, lookup)
	if faults.Code(err) == faults.CodeFanoutPartial {
		f.logger.Warn("lookup inconclusive, absence not cached", "key", key, "error", err)
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	if !found {
		f.store(ctx, key, cache.NullSentinel, cache.NullIdentity)
		return zero, false, nil
	}

	encoded, err := f.codec.Encode(record)
	if err != nil {
		f.logger.Warn("entity not cacheable", "key", key, "error", err)
		return record, true, nil
	}
	f.store(ctx, key, encoded, record.ShardIdentity())
	return record, true, nil
}

// Lookup is Get with a cache key derived from the lookup itself.
func (f *Finder[T]) Lookup(ctx context.Context, lookup Lookup) (T, bool, error) {
	lookup, err := normalize(lookup)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return f.Get(ctx, f.KeyFor(lookup), lookup)
}

// KeyFor derives the cache key Lookup uses for lookup. Pointer and value
// forms of a lookup share one key; a nil lookup yields "".
func (f *Finder[T]) KeyFor(lookup Lookup) string {
	lookup, err := normalize(lookup)
	if err != nil {
		return ""
	}
	fields := lookup.Fields()
	args := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		args = append(args, field.Name, field.Value)
	}
	return f.keys.SerializeKey(lookup.Method(), args...)
}

// Invalidate drops every cached entry that resolved to entity.
func (f *Finder[T]) Invalidate(ctx context.Context, entity T) error {
	return f.InvalidateIdentity(ctx, entity.ShardIdentity())
}

// InvalidateMissing drops every cached "not found" entry of this finder.
func (f *Finder[T]) InvalidateMissing(ctx context.Context) error {
	return f.InvalidateIdentity(ctx, cache.NullIdentity)
}

// InvalidateIdentity drops every cached entry registered under identity,
// along with its reference list.
func (f *Finder[T]) InvalidateIdentity(ctx context.Context, identity string) error {
	if f.disabled {
		return nil
	}

	refKey := cache.RefKey(f.ns, identity)
	keys, err := f.backend.Range(ctx, refKey)
	if err != nil {
		return faults.Wrap(err, goerrors.CategoryExternal, faults.CodeCacheUnavailable, "read reference list "+refKey)
	}

	if err := f.backend.Delete(ctx, append(keys, refKey)...); err != nil {
		return faults.Wrap(err, goerrors.CategoryExternal, faults.CodeCacheUnavailable, "invalidate "+identity)
	}
	f.logger.Debug("invalidated", "identity", identity, "keys", len(keys))
	return nil
}

func (f *Finder[T]) refresh(ctx context.Context, key, value string) {
	if err := f.backend.Set(ctx, key, value, f.ttl); err != nil {
		f.logger.Warn("cache ttl refresh failed", "key", key, "error", err)
	}
}

func (f *Finder[T]) store(ctx context.Context, key, value, identity string) {
	if err := f.backend.Set(ctx, key, value, f.ttl); err != nil {
		f.logger.Warn("cache write failed", "key", key, "error", err)
		return
	}

	identities := append([]string{identity}, referencesFromContext(ctx)...)
	for _, id := range dedupeStrings(identities) {
		refKey := cache.RefKey(f.ns, id)
		if err := f.backend.LPush(ctx, refKey, key); err != nil {
			f.logger.Warn("reference list update failed", "ref_key", refKey, "key", key, "error", err)
		}
	}
}

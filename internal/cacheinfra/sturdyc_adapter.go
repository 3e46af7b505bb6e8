package cacheinfra

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
// It encapsulates the core sturdyc options needed for cache initialization.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the longest an entry may live. Per entry TTLs passed to Set are
	// capped at this value.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
// Returns an error if any configuration parameter is invalid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Option customises a sturdyc backend.
type Option func(*SturdycBackend)

// WithClock replaces time.Now for entry expiry checks.
func WithClock(now func() time.Time) Option {
	return func(b *SturdycBackend) {
		if now != nil {
			b.now = now
		}
	}
}

type entry struct {
	value   string
	expires time.Time
}

// SturdycBackend stores values in a sturdyc client and reference lists in an
// xsync map. sturdyc applies one TTL per client, so each value carries its own
// expiry and is treated as a miss once that passes. Reference lists never
// expire and are never evicted; a list outlives every value it names until
// it is deleted, and keys of values that are gone are pruned on the next
// LPush to the list.
type SturdycBackend struct {
	values *sturdyc.Client[entry]
	refs   *xsync.MapOf[string, []string]
	maxTTL time.Duration
	now    func() time.Time
}

// NewSturdycBackend validates cfg and initializes the value client.
//
// Version compatibility note: This implementation assumes sturdyc v1.x API.
func NewSturdycBackend(cfg Config, opts ...Option) (*SturdycBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &SturdycBackend{
		values: sturdyc.New[entry](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, cfg.ToSturdycOptions()...),
		refs:   xsync.NewMapOf[string, []string](),
		maxTTL: cfg.TTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Get returns the live value stored under key.
func (b *SturdycBackend) Get(ctx context.Context, key string) (string, bool, error) {
	e, ok := b.values.Get(key)
	if !ok {
		return "", false, nil
	}
	if !b.live(e) {
		b.values.Delete(key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (b *SturdycBackend) live(e entry) bool {
	return b.now().Before(e.expires)
}

// Set stores value under key until ttl elapses.
func (b *SturdycBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 || ttl > b.maxTTL {
		ttl = b.maxTTL
	}
	b.values.Set(key, entry{value: value, expires: b.now().Add(ttl)})
	return nil
}

// LPush prepends key to the list under refKey. A key already present is not
// added twice. Keys whose values expired or were evicted are dropped.
func (b *SturdycBackend) LPush(ctx context.Context, refKey, key string) error {
	b.refs.Compute(refKey, func(current []string, _ bool) ([]string, bool) {
		next := make([]string, 0, len(current)+1)
		next = append(next, key)
		for _, k := range current {
			if k == key {
				continue
			}
			if e, ok := b.values.Get(k); ok && b.live(e) {
				next = append(next, k)
			}
		}
		return next, false
	})
	return nil
}

// Range returns a copy of the list under refKey.
func (b *SturdycBackend) Range(ctx context.Context, refKey string) ([]string, error) {
	current, ok := b.refs.Load(refKey)
	if !ok {
		return nil, nil
	}
	return append([]string(nil), current...), nil
}

// Delete removes every value and reference list stored under keys.
func (b *SturdycBackend) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		b.values.Delete(key)
		b.refs.Delete(key)
	}
	return nil
}

package cache

import (
	"time"

	"github.com/goliatone/go-repository-shards/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// Option customises the default backend.
type Option = cacheinfra.Option

// NewBackend constructs the default sturdyc backed Backend.
func NewBackend(cfg Config, opts ...Option) (Backend, error) {
	backend, err := cacheinfra.NewSturdycBackend(cfg.toInternal(), opts...)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// WithClock overrides the clock used for per entry expiry.
func WithClock(now func() time.Time) Option {
	return cacheinfra.WithClock(now)
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}

package shardset

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/goliatone/go-repository-shards/topology"
)

// DefaultLogicalSpace is the size of the logical hash space when none is set.
const DefaultLogicalSpace = 100

// Config describes a named shard set.
type Config struct {
	// Name namespaces cache keys and task descriptions.
	Name string `json:"name"`
	// HashOn is the entity field whose value routes to a shard.
	HashOn string `json:"hash_on"`
	// LogicalSpace is the exclusive upper bound of the hash space.
	LogicalSpace int `json:"logical_space"`
	// Shards lists every physical shard of the set.
	Shards []topology.ShardMap `json:"shards"`
}

// DefaultConfig returns a Config with the logical space set and no shards.
func DefaultConfig(name, hashOn string) Config {
	return Config{
		Name:         name,
		HashOn:       hashOn,
		LogicalSpace: DefaultLogicalSpace,
	}
}

// Validate checks the configuration and every shard range in it.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.HashOn, validation.Required),
		validation.Field(&c.LogicalSpace, validation.Required, validation.Min(1)),
		validation.Field(&c.Shards, validation.Required),
	)
	if err != nil {
		return faults.Wrap(err, goerrors.CategoryValidation, faults.CodeInvalidConfig,
			"invalid shard set config "+c.Name)
	}

	if err := topology.ValidateMaps(c.Shards); err != nil {
		return faults.Wrap(err, goerrors.CategoryValidation, faults.CodeInvalidConfig,
			"invalid shard set config "+c.Name)
	}

	for _, m := range c.Shards {
		if m.Range.LogicalStart < 0 || m.Range.LogicalEnd > c.LogicalSpace {
			return faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig,
				"shard "+m.String()+" is outside the logical space")
		}
	}
	return nil
}

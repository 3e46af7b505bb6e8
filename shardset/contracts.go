package shardset

import (
	"context"
	"fmt"
	"strings"
)

// Shardable is implemented by every entity routed through a shard set.
type Shardable interface {
	// HashToShardField names the field whose value selects the owning shard.
	HashToShardField() string
	// ShardIdentity is the entity's opaque unique identity.
	ShardIdentity() string
}

// FieldValue is one field/value pair of a unique lookup.
type FieldValue struct {
	Name  string
	Value any
}

func (f FieldValue) String() string {
	return fmt.Sprintf("%s=%v", f.Name, f.Value)
}

// Describe renders fields as "a=1,b=2" for logs and task descriptions.
func Describe(fields []FieldValue) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// DAO is the read contract of a single shard. A missing record is reported
// with found == false and a nil error.
type DAO[T any] interface {
	Get(ctx context.Context, id string) (record T, found bool, err error)
	FindByUniqueFields(ctx context.Context, fields ...FieldValue) (record T, found bool, err error)
}

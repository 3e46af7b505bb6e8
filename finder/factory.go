package finder

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/goliatone/go-repository-shards/shardset"
	"github.com/goliatone/go-repository-shards/task"
	"github.com/goliatone/go-repository-shards/topology"
)

// Event keys recorded by shard query tasks.
const (
	KeyShardMatch = "shard.match"
	KeyShardMiss  = "shard.miss"
)

// ShardTask is a task that answers a lookup against one shard.
type ShardTask[T any] interface {
	task.Task
	Shard() topology.ShardMap
	// Found is meaningful once the task succeeded.
	Found() (T, bool)
}

// TaskFactory produces one task per shard for a single lookup.
type TaskFactory[T any] interface {
	ShardTasks() []ShardTask[T]
}

// FactoryFunc builds the TaskFactory for a fan-out lookup.
type FactoryFunc[T any] func(set *shardset.ShardSet[T], op string, fields []shardset.FieldValue) TaskFactory[T]

// UniqueFieldsFactory builds a ShardQueryTask for every read shard.
type UniqueFieldsFactory[T any] struct {
	Set    *shardset.ShardSet[T]
	Op     string
	Fields []shardset.FieldValue
}

// NewUniqueFieldsFactory is the default FactoryFunc.
func NewUniqueFieldsFactory[T any](set *shardset.ShardSet[T], op string, fields []shardset.FieldValue) TaskFactory[T] {
	return UniqueFieldsFactory[T]{Set: set, Op: op, Fields: fields}
}

func (f UniqueFieldsFactory[T]) ShardTasks() []ShardTask[T] {
	shards := f.Set.ReadShards()
	tasks := make([]ShardTask[T], len(shards))
	for i, sh := range shards {
		tasks[i] = NewShardQueryTask(sh, f.Op, f.Fields)
	}
	return tasks
}

type match[T any] struct {
	record T
	found  bool
}

// ShardQueryTask runs FindByUniqueFields against one shard.
type ShardQueryTask[T any] struct {
	task.Base
	shard  shardset.Shard[T]
	op     string
	fields []shardset.FieldValue
}

// NewShardQueryTask returns a task querying sh for fields.
func NewShardQueryTask[T any](sh shardset.Shard[T], op string, fields []shardset.FieldValue) *ShardQueryTask[T] {
	return &ShardQueryTask[T]{shard: sh, op: op, fields: fields}
}

func (q *ShardQueryTask[T]) Shard() topology.ShardMap { return q.shard.Map }

func (q *ShardQueryTask[T]) Execute(ctx context.Context) error {
	q.Describe(q.op, q.shard.Map.URL)

	record, found, err := q.shard.DAO.FindByUniqueFields(ctx, q.fields...)
	if err != nil {
		return faults.Wrap(err, goerrors.CategoryExternal, faults.CodeShardQueryFailed,
			"query shard "+q.shard.Map.URL+" for "+shardset.Describe(q.fields))
	}

	key := KeyShardMiss
	if found {
		key = KeyShardMatch
	}
	q.Succeed(key, match[T]{record: record, found: found})
	return nil
}

func (q *ShardQueryTask[T]) Found() (T, bool) {
	m, ok := q.Result().Value().(match[T])
	if !ok {
		var zero T
		return zero, false
	}
	return m.record, m.found
}

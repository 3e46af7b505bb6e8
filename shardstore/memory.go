package shardstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-repository-shards/shardset"
)

// FieldGetter returns the value of field on record.
type FieldGetter[T any] func(record T, field string) (any, bool)

// MemoryDAO is a thread-safe in-memory shard. Unique lookups scan records
// and compare fields through the getter.
type MemoryDAO[T shardset.Shardable] struct {
	mu      sync.RWMutex
	records map[string]T
	order   []string
	field   FieldGetter[T]
	stats   Stats
}

// Stats counts the queries a shard has served.
type Stats struct {
	Gets    atomic.Uint64
	Lookups atomic.Uint64
}

// NewMemoryDAO creates an empty shard.
func NewMemoryDAO[T shardset.Shardable](field FieldGetter[T]) *MemoryDAO[T] {
	return &MemoryDAO[T]{
		records: make(map[string]T),
		field:   field,
	}
}

// Put stores record under its identity, replacing any previous version.
func (m *MemoryDAO[T]) Put(record T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := record.ShardIdentity()
	if _, exists := m.records[id]; !exists {
		m.order = append(m.order, id)
	}
	m.records[id] = record
}

// Remove deletes the record with identity id. No error if it is missing.
func (m *MemoryDAO[T]) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		return
	}
	delete(m.records, id)
	for i, k := range m.order {
		if k == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Get returns the record with identity id.
func (m *MemoryDAO[T]) Get(ctx context.Context, id string) (T, bool, error) {
	m.stats.Gets.Add(1)
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	return record, ok, nil
}

// FindByUniqueFields returns the first record, in insertion order, whose
// fields all match.
func (m *MemoryDAO[T]) FindByUniqueFields(ctx context.Context, fields ...shardset.FieldValue) (T, bool, error) {
	m.stats.Lookups.Add(1)
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if len(fields) == 0 {
		return zero, false, fmt.Errorf("unique lookup needs at least one field")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		record := m.records[id]
		if m.matches(record, fields) {
			return record, true, nil
		}
	}
	return zero, false, nil
}

// Len is the number of stored records.
func (m *MemoryDAO[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Stats exposes query counters.
func (m *MemoryDAO[T]) Stats() *Stats {
	return &m.stats
}

func (m *MemoryDAO[T]) matches(record T, fields []shardset.FieldValue) bool {
	for _, f := range fields {
		v, ok := m.field(record, f.Name)
		if !ok || fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-repository-shards/shardset"
	"github.com/goliatone/go-repository-shards/shardstore"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// CompareWithGolden compares actual data with the golden file at path.
// If the golden file doesn't exist, it creates one with the actual data.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.Fatalf("failed to read golden file %s: %v", path, err)
		}
		t.Logf("Golden file %s does not exist, creating it", path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(path, actual, 0644); err != nil {
			t.Fatalf("failed to write golden file to %s: %v", path, err)
		}
		return
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// ShardSetFixture is a shard set topology together with the records that
// live in it.
type ShardSetFixture[T any] struct {
	ShardSet shardset.Config `json:"shard_set"`
	Records  []T             `json:"records"`
	// Logical pins hash values so fixtures route deterministically.
	Logical map[string]int `json:"logical"`
}

// Hasher returns a hasher reading Logical, falling back to XXHasher for
// values the fixture does not pin.
func (f ShardSetFixture[T]) Hasher() shardset.Hasher {
	return func(value any, space int) int {
		if s, ok := value.(string); ok {
			if v, ok := f.Logical[s]; ok {
				return v
			}
		}
		return shardset.XXHasher(value, space)
	}
}

// LoadShardSetFixture loads a ShardSetFixture from a JSON file.
func LoadShardSetFixture[T any](t testing.TB, path string) ShardSetFixture[T] {
	t.Helper()

	var fx ShardSetFixture[T]
	LoadFixtureJSON(t, path, &fx)
	return fx
}

// MemoryShards builds one MemoryDAO per read shard of fx, places every record
// on the shard owning its hash field value and returns the routed set.
func MemoryShards[T shardset.Shardable](t testing.TB, fx ShardSetFixture[T], field shardstore.FieldGetter[T]) (*shardset.ShardSet[T], map[string]*shardstore.MemoryDAO[T]) {
	t.Helper()

	shards := make(map[string]*shardstore.MemoryDAO[T])
	daos := make(map[string]shardset.DAO[T])
	for _, m := range fx.ShardSet.Shards {
		if _, ok := shards[m.URL]; ok {
			continue
		}
		dao := shardstore.NewMemoryDAO[T](field)
		shards[m.URL] = dao
		daos[m.URL] = dao
	}

	set, err := shardset.New(fx.ShardSet, daos, shardset.WithHasher(fx.Hasher()))
	if err != nil {
		t.Fatalf("failed to build shard set %s: %v", fx.ShardSet.Name, err)
	}

	for _, record := range fx.Records {
		value, ok := field(record, record.HashToShardField())
		if !ok {
			t.Fatalf("record %s has no hash field %s", record.ShardIdentity(), record.HashToShardField())
		}
		owner, err := set.ShardFor(value)
		if err != nil {
			t.Fatalf("record %s has no owning shard: %v", record.ShardIdentity(), err)
		}
		shards[owner.URL].Put(record)
	}

	return set, shards
}

// FakeClock is a manually advanced clock for cache expiry tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock stopped at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time. Pass it to cache.WithClock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

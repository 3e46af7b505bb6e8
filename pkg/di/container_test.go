package di

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-repository-shards/cache"
	"github.com/goliatone/go-repository-shards/finder"
	"github.com/goliatone/go-repository-shards/shardset"
	"github.com/goliatone/go-repository-shards/shardstore"
	"github.com/goliatone/go-repository-shards/task"
	"github.com/goliatone/go-repository-shards/topology"
	"github.com/uptrace/bun"
)

// Account is the entity used across the container tests
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	UUID  string `bun:"uuid,pk" json:"uuid"`
	Email string `bun:"email" json:"email"`
	Name  string `bun:"name" json:"name"`
}

func (a Account) HashToShardField() string { return "uuid" }
func (a Account) ShardIdentity() string    { return a.UUID }

func accountField(a Account, field string) (any, bool) {
	switch field {
	case "uuid":
		return a.UUID, true
	case "email":
		return a.Email, true
	case "name":
		return a.Name, true
	}
	return nil, false
}

// accountsHasher pins the logical value of the uuids used in tests
func accountsHasher(value any, space int) int {
	switch value {
	case "x":
		return 73
	case "y":
		return 12
	}
	return shardset.XXHasher(value, space)
}

func accountsConfig(url1, url2 string) shardset.Config {
	cfg := shardset.DefaultConfig("accounts", "uuid")
	cfg.Shards = []topology.ShardMap{
		{ShardSet: "accounts", URL: url1, Range: topology.ShardRange{LogicalStart: 0, LogicalEnd: 50}, AllowRead: true, AllowWrite: true},
		{ShardSet: "accounts", URL: url2, Range: topology.ShardRange{LogicalStart: 50, LogicalEnd: 100}, AllowRead: true, AllowWrite: true},
	}
	return cfg
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()

	config := DefaultConfig()
	config.Cache.Capacity = 1000
	config.Cache.NumShards = 16
	config.Tasks.Workers = 8

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	t.Cleanup(func() { container.Close() })
	return container
}

func memoryAccounts(t *testing.T) (*shardset.ShardSet[Account], *shardstore.MemoryDAO[Account], *shardstore.MemoryDAO[Account]) {
	t.Helper()

	shard1 := shardstore.NewMemoryDAO[Account](accountField)
	shard2 := shardstore.NewMemoryDAO[Account](accountField)
	shard1.Put(Account{UUID: "y", Email: "y@acme.io", Name: "Yuri"})
	shard2.Put(Account{UUID: "x", Email: "x@acme.io", Name: "Xena"})

	set, err := shardset.New(accountsConfig("mem-1", "mem-2"),
		map[string]shardset.DAO[Account]{"mem-1": shard1, "mem-2": shard2},
		shardset.WithHasher(accountsHasher))
	if err != nil {
		t.Fatalf("shardset.New() failed: %v", err)
	}
	return set, shard1, shard2
}

func TestNewContainer(t *testing.T) {
	config := DefaultConfig()
	config.Cache = cache.Config{
		Capacity:           1000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
	config.Tasks.Workers = 16
	config.Finder.TTL = time.Minute

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.Backend() == nil {
		t.Error("Container should have a non-nil cache backend")
	}
	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}
	if container.Tasks() == nil || container.Jobs() == nil {
		t.Error("Container should have both task runners")
	}

	stored := container.Config()
	if stored.Cache.Capacity != config.Cache.Capacity {
		t.Errorf("Expected capacity %d, got %d", config.Cache.Capacity, stored.Cache.Capacity)
	}
	if stored.Finder.TTL != time.Minute {
		t.Errorf("Expected finder TTL %v, got %v", time.Minute, stored.Finder.TTL)
	}
	if stored.Tasks.Logger == nil {
		t.Error("Container should hand its logger to the runners")
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	config := container.Config()
	if config.Cache.Capacity != cache.DefaultConfig().Capacity {
		t.Errorf("Expected default capacity %d, got %d", cache.DefaultConfig().Capacity, config.Cache.Capacity)
	}
	if config.Fanout.Timeout != finder.DefaultFanoutTimeout {
		t.Errorf("Expected default fan-out timeout %v, got %v", finder.DefaultFanoutTimeout, config.Fanout.Timeout)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cache capacity", func(c *Config) { c.Cache.Capacity = 0 }},
		{"zero workers", func(c *Config) { c.Tasks.Workers = 0 }},
		{"zero job workers", func(c *Config) { c.Jobs.Workers = 0 }},
		{"zero fan-out timeout", func(c *Config) { c.Fanout.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			if _, err := NewContainer(config); err == nil {
				t.Error("NewContainer() should fail for invalid config")
			}
		})
	}
}

func TestNewFinder_CachesAcrossCalls(t *testing.T) {
	container := newTestContainer(t)
	set, shard1, shard2 := memoryAccounts(t)
	ctx := context.Background()

	accounts, err := NewFinder(container, set)
	if err != nil {
		t.Fatalf("NewFinder() failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, ok, err := accounts.Lookup(ctx, finder.ByField{Field: "email", Value: "x@acme.io"})
		if err != nil || !ok {
			t.Fatalf("Lookup() = %v, %v, %v", got, ok, err)
		}
		if got.Name != "Xena" {
			t.Errorf("Expected Xena, got %q", got.Name)
		}
	}

	if n := shard2.Stats().Lookups.Load(); n != 1 {
		t.Errorf("Expected owning shard to be queried once, got %d", n)
	}
	if n := shard1.Stats().Lookups.Load(); n > 1 {
		t.Errorf("Expected other shard to be queried at most once, got %d", n)
	}
}

func TestWarm(t *testing.T) {
	container := newTestContainer(t)
	set, _, shard2 := memoryAccounts(t)

	accounts, err := NewFinder(container, set)
	if err != nil {
		t.Fatalf("NewFinder() failed: %v", err)
	}

	id, err := Warm(container, accounts, finder.ByID{ID: "x"})
	if err != nil {
		t.Fatalf("Warm() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := container.Jobs().Await(ctx, id)
	if err != nil {
		t.Fatalf("Await() failed: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("warm task failed: %v", res.Err())
	}

	if _, ok, _ := accounts.Lookup(ctx, finder.ByID{ID: "x"}); !ok {
		t.Error("Expected warmed account to be found")
	}
	if n := shard2.Stats().Gets.Load(); n != 1 {
		t.Errorf("Expected a single shard read, got %d", n)
	}
}

func TestOpenBunShardSet_SQLite(t *testing.T) {
	ctx := context.Background()
	url1 := "sqlite://file:di_accounts_1?mode=memory&cache=shared"
	url2 := "sqlite://file:di_accounts_2?mode=memory&cache=shared"

	seed := map[string][]Account{
		url1: {{UUID: "y", Email: "y@acme.io", Name: "Yuri"}},
		url2: {{UUID: "x", Email: "x@acme.io", Name: "Xena"}},
	}
	for url, rows := range seed {
		// keeps the shared in-memory database alive for the whole test
		db, err := shardstore.Open(url)
		if err != nil {
			t.Fatalf("Open(%s) failed: %v", url, err)
		}
		t.Cleanup(func() { db.Close() })

		if _, err := db.NewCreateTable().Model((*Account)(nil)).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table failed: %v", err)
		}
		if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	container := newTestContainer(t)
	set, err := OpenBunShardSet[Account](container, accountsConfig(url1, url2), "uuid", shardset.WithHasher(accountsHasher))
	if err != nil {
		t.Fatalf("OpenBunShardSet() failed: %v", err)
	}

	accounts, err := NewFinder(container, set)
	if err != nil {
		t.Fatalf("NewFinder() failed: %v", err)
	}

	got, ok, err := accounts.Lookup(ctx, finder.ByID{ID: "x"})
	if err != nil || !ok {
		t.Fatalf("Lookup(ByID) = %v, %v, %v", got, ok, err)
	}
	if got.Email != "x@acme.io" {
		t.Errorf("Expected x@acme.io, got %q", got.Email)
	}

	got, ok, err = accounts.Lookup(ctx, finder.ByField{Field: "email", Value: "y@acme.io"})
	if err != nil || !ok {
		t.Fatalf("Lookup(ByField) = %v, %v, %v", got, ok, err)
	}
	if got.UUID != "y" {
		t.Errorf("Expected uuid y, got %q", got.UUID)
	}

	_, ok, err = accounts.Lookup(ctx, finder.ByField{Field: "email", Value: "nobody@acme.io"})
	if err != nil || ok {
		t.Errorf("Expected a clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestOpenBunShardSet_BadURL(t *testing.T) {
	container := newTestContainer(t)

	_, err := OpenBunShardSet[Account](container, accountsConfig("mysql://a", "mysql://b"), "uuid")
	if err == nil {
		t.Error("OpenBunShardSet() should reject unsupported schemes")
	}
}

func TestClose(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	if err := container.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := container.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}

	_, err = container.Tasks().Execute(task.NewFunc(func(ctx context.Context, t *task.Func) error {
		t.Succeed("noop", nil)
		return nil
	}))
	if !task.IsStopped(err) {
		t.Errorf("Expected RUNNER_STOPPED after Close, got %v", err)
	}
}

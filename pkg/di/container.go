package di

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/goliatone/go-repository-shards/cache"
	"github.com/goliatone/go-repository-shards/finder"
	"github.com/goliatone/go-repository-shards/shardset"
	"github.com/goliatone/go-repository-shards/shardstore"
	"github.com/goliatone/go-repository-shards/task"
	"github.com/uptrace/bun"
)

// Config gathers the configuration of every component a Container owns.
type Config struct {
	Cache cache.Config
	// Tasks sizes the runner that executes fan-out shard queries.
	Tasks task.Config
	// Jobs sizes the serial runner that executes warm-up tasks.
	Jobs   task.Config
	Fanout finder.DispatcherConfig
	Finder finder.Config
	Logger *slog.Logger
}

// DefaultConfig returns the defaults of every component. Jobs gets a small
// pool of its own.
func DefaultConfig() Config {
	return Config{
		Cache:  cache.DefaultConfig(),
		Tasks:  task.DefaultConfig(),
		Jobs:   task.Config{Workers: 4},
		Fanout: finder.DefaultDispatcherConfig(),
		Finder: finder.DefaultConfig(),
	}
}

// Validate checks every component configuration.
func (c Config) Validate() error {
	return errors.Join(
		c.Cache.Validate(),
		c.Tasks.Validate(),
		c.Jobs.Validate(),
		c.Fanout.Validate(),
	)
}

// Container provides dependency injection for the finder stack.
// It manages singleton instances of the cache backend, key serializer and
// task runners, and provides factory functions for finders over shard sets.
type Container struct {
	backend       cache.Backend
	keySerializer cache.KeySerializer
	tasks         *task.Service
	jobs          *task.SerialService[task.SerialTask]
	config        Config
	logger        *slog.Logger

	mu     sync.Mutex
	dbs    []*bun.DB
	closed bool
}

// NewContainer validates config and starts the backend and both runners.
// Cache options (e.g. cache.WithClock) apply to the backend.
func NewContainer(config Config, opts ...cache.Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Tasks.Logger == nil {
		config.Tasks.Logger = logger
	}
	if config.Jobs.Logger == nil {
		config.Jobs.Logger = logger
	}
	if config.Fanout.Logger == nil {
		config.Fanout.Logger = logger
	}
	if config.Finder.Logger == nil {
		config.Finder.Logger = logger
	}

	backend, err := cache.NewBackend(config.Cache, opts...)
	if err != nil {
		return nil, err
	}

	tasks, err := task.NewService(config.Tasks)
	if err != nil {
		return nil, err
	}

	jobsBase, err := task.NewService(config.Jobs)
	if err != nil {
		tasks.Stop()
		return nil, err
	}

	return &Container{
		backend:       backend,
		keySerializer: cache.NewDefaultKeySerializer(),
		tasks:         tasks,
		jobs:          task.NewSerialService[task.SerialTask](jobsBase, task.CarryForward),
		config:        config,
		logger:        logger.With("component", "di.container"),
	}, nil
}

// NewContainerWithDefaults creates a container using DefaultConfig.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(DefaultConfig())
}

// Backend returns the singleton cache backend.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// KeySerializer returns the singleton key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Tasks returns the fan-out runner.
func (c *Container) Tasks() *task.Service {
	return c.tasks
}

// Jobs returns the serial runner used for warm-ups.
func (c *Container) Jobs() *task.SerialService[task.SerialTask] {
	return c.jobs
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// Close stops both runners and closes every database opened through
// OpenBunShardSet. It is safe to call more than once.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	dbs := c.dbs
	c.dbs = nil
	c.mu.Unlock()

	c.jobs.Stop()
	c.tasks.Stop()

	var errs []error
	for _, db := range dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Container) track(db *bun.DB) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dbs = append(c.dbs, db)
}

// NewFinder creates a finder over set, wired to the container's backend,
// key serializer and fan-out runner.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewFinder[Account](container, accounts)
func NewFinder[T shardset.Shardable](c *Container, set *shardset.ShardSet[T], opts ...finder.Option[T]) (*finder.Finder[T], error) {
	dispatcher, err := finder.NewDispatcher[T](c.tasks, c.config.Fanout)
	if err != nil {
		return nil, err
	}

	opts = append([]finder.Option[T]{finder.WithKeySerializer[T](c.keySerializer)}, opts...)
	return finder.New(set, c.backend, dispatcher, c.config.Finder, opts...)
}

// Warm submits a warm-up of lookups through f to the serial runner. A warm-up
// of the same shard set still running fails with TASK_ALREADY_RUNNING.
func Warm[T shardset.Shardable](c *Container, f *finder.Finder[T], lookups ...finder.Lookup) (task.ID, error) {
	return c.jobs.Execute(finder.NewWarmTask(f, lookups...))
}

// OpenBunShardSet opens every read shard of cfg with shardstore.Open and
// builds a shard set of BunDAOs over them. The databases are closed by
// Close.
func OpenBunShardSet[T shardset.Shardable](c *Container, cfg shardset.Config, idColumn string, opts ...shardset.Option) (*shardset.ShardSet[T], error) {
	daos := make(map[string]shardset.DAO[T])
	var opened []*bun.DB

	fail := func(err error) (*shardset.ShardSet[T], error) {
		for _, db := range opened {
			db.Close()
		}
		return nil, err
	}

	for _, m := range cfg.Shards {
		if !m.AllowRead {
			continue
		}
		if _, ok := daos[m.URL]; ok {
			continue
		}
		db, err := shardstore.Open(m.URL)
		if err != nil {
			return fail(err)
		}
		opened = append(opened, db)
		daos[m.URL] = shardstore.NewBunDAO[T](db, idColumn)
	}

	set, err := shardset.New(cfg, daos, opts...)
	if err != nil {
		return fail(err)
	}

	for _, db := range opened {
		c.track(db)
	}
	c.logger.Info("shard set opened", "shard_set", cfg.Name, "databases", len(opened))
	return set, nil
}

package finder

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/goliatone/go-repository-shards/task"
)

// DefaultFanoutTimeout bounds a fan-out query when no timeout is configured.
const DefaultFanoutTimeout = 5 * time.Second

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultDispatcherConfig returns a DispatcherConfig with DefaultFanoutTimeout.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{Timeout: DefaultFanoutTimeout}
}

// Validate checks the timeout.
func (c DispatcherConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
	if err != nil {
		return faults.Wrap(err, goerrors.CategoryValidation, faults.CodeInvalidConfig, "invalid dispatcher config")
	}
	return nil
}

// Dispatcher fans a lookup out to every read shard through a task.Service.
type Dispatcher[T any] struct {
	tasks   *task.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher returns a Dispatcher submitting to tasks.
func NewDispatcher[T any](tasks *task.Service, cfg DispatcherConfig) (*Dispatcher[T], error) {
	if tasks == nil {
		return nil, faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig, "dispatcher needs a task service")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher[T]{
		tasks:   tasks,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "finder.dispatcher"),
	}, nil
}

// Timeout is the bound applied to every fan-out.
func (d *Dispatcher[T]) Timeout() time.Duration { return d.timeout }

type submitted[T any] struct {
	id task.ID
	st ShardTask[T]
}

// QueryShardsUnique runs one task per shard and returns the first entity
// found. Remaining tasks are cancelled once a match arrives. A shard that
// fails is logged and skipped. Without a match the lookup fails with
// FANOUT_FAILED when no shard answered, with FANOUT_PARTIAL when some shards
// answered and others failed, and with FANOUT_TIMEOUT when the timeout (or
// ctx) elapses before every shard answered.
func (d *Dispatcher[T]) QueryShardsUnique(ctx context.Context, factory TaskFactory[T], opName string) (T, bool, error) {
	var zero T

	shardTasks := factory.ShardTasks()
	if len(shardTasks) == 0 {
		return zero, false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	outcomes := make(chan ShardTask[T], len(shardTasks))
	running := make([]submitted[T], 0, len(shardTasks))
	var errs []error

	for _, st := range shardTasks {
		id, err := d.tasks.Execute(st)
		if err != nil {
			d.logger.Warn("shard task not submitted", "op", opName, "shard", st.Shard().URL, "error", err)
			errs = append(errs, err)
			continue
		}
		running = append(running, submitted[T]{id: id, st: st})

		done := st.Result().Done()
		go func(st ShardTask[T]) {
			select {
			case <-done:
				outcomes <- st
			case <-ctx.Done():
			}
		}(st)
	}
	defer d.release(running)

	answered := 0
	for pending := len(running); pending > 0; pending-- {
		select {
		case st := <-outcomes:
			res := st.Result()
			if res.HasError() {
				d.logger.Warn("shard query failed", "op", opName, "shard", st.Shard().URL, "error", res.Err())
				errs = append(errs, res.Err())
				continue
			}
			answered++
			if record, ok := st.Found(); ok {
				return record, true, nil
			}

		case <-ctx.Done():
			return zero, false, faults.Wrap(ctx.Err(), goerrors.CategoryOperation, faults.CodeFanoutTimeout,
				opName+" fan-out did not complete within "+d.timeout.String()).
				WithMetadata(map[string]any{"op": opName, "shards": len(shardTasks), "answered": answered})
		}
	}

	switch {
	case len(errs) == 0:
		return zero, false, nil
	case answered == 0:
		return zero, false, faults.Wrap(stderrors.Join(errs...), goerrors.CategoryExternal, faults.CodeFanoutFailed,
			opName+" failed on every shard").
			WithMetadata(map[string]any{"op": opName, "shards": len(shardTasks)})
	default:
		return zero, false, faults.Wrap(stderrors.Join(errs...), goerrors.CategoryExternal, faults.CodeFanoutPartial,
			opName+" missed on the shards that answered").
			WithMetadata(map[string]any{"op": opName, "shards": len(shardTasks), "answered": answered})
	}
}

// release cancels tasks still in flight and drops finished ones from the
// service registry.
func (d *Dispatcher[T]) release(running []submitted[T]) {
	for _, s := range running {
		if s.st.Result().IsComplete() {
			d.tasks.Forget(s.id)
			continue
		}
		d.tasks.Cancel(s.id)
	}
}

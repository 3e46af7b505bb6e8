package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/puzpuzpuz/xsync/v3"
)

// Event keys recorded by the runner.
const (
	KeyStarted    = "task.started"
	KeyFailed     = "task.failed"
	KeyIncomplete = "task.incomplete"
	KeyCancelled  = "task.cancelled"
	KeyRejected   = "task.rejected"
)

// Config sizes a Service.
type Config struct {
	// Workers bounds how many tasks execute at once. Tasks submitted beyond
	// it wait for a free slot.
	Workers int
	// Logger receives runner diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with 32 workers.
func DefaultConfig() Config {
	return Config{Workers: 32}
}

// Validate checks the worker count.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return faults.Wrap(err, goerrors.CategoryValidation, faults.CodeInvalidConfig, "invalid task service config")
	}
	return nil
}

// Service runs tasks on a bounded pool and tracks them by ID until they are
// cancelled or forgotten.
type Service struct {
	logger *slog.Logger
	tasks  *xsync.MapOf[ID, Task]
	slots  chan struct{}

	ctx  context.Context
	stop context.CancelFunc

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewService validates cfg and returns a running Service.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Service{
		logger: logger.With("component", "task.service"),
		tasks:  xsync.NewMapOf[ID, Task](),
		slots:  make(chan struct{}, cfg.Workers),
		ctx:    ctx,
		stop:   stop,
	}, nil
}

// Execute initialises t, registers it and schedules it. It never waits for
// the task to start.
func (s *Service) Execute(t Task) (ID, error) {
	if t == nil {
		return "", faults.New(goerrors.CategoryValidation, faults.CodeInvalidConfig, "nil task")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return "", faults.New(goerrors.CategoryOperation, faults.CodeRunnerStopped, "task service is stopped")
	}

	t.Init()
	id := t.ID()

	ctx, cancel := context.WithCancel(s.ctx)
	t.Attach(cancel)
	s.tasks.Store(id, t)

	s.wg.Add(1)
	go s.run(ctx, cancel, t)
	return id, nil
}

// Result returns the live result of id, or nil for an unknown id.
func (s *Service) Result(id ID) *Result {
	t, ok := s.tasks.Load(id)
	if !ok {
		return nil
	}
	return t.Result()
}

// Task returns the registered task for id.
func (s *Service) Task(id ID) (Task, bool) {
	return s.tasks.Load(id)
}

// Cancel unregisters id and cancels the task. The returned task is the only
// handle left on its result.
func (s *Service) Cancel(id ID) Task {
	t, ok := s.tasks.LoadAndDelete(id)
	if !ok {
		return nil
	}
	t.Cancel()
	return t
}

// Forget unregisters id without cancelling it.
func (s *Service) Forget(id ID) {
	s.tasks.Delete(id)
}

// Len is the number of registered tasks.
func (s *Service) Len() int {
	return s.tasks.Size()
}

// Await blocks until id completes or ctx is done.
func (s *Service) Await(ctx context.Context, id ID) (*Result, error) {
	res := s.Result(id)
	if res == nil {
		return nil, faults.New(goerrors.CategoryNotFound, faults.CodeTaskNotFound, "unknown task "+string(id))
	}
	select {
	case <-res.Done():
		return res, nil
	case <-ctx.Done():
		return res, ctx.Err()
	}
}

// Stop cancels every task, waits for running ones to unwind and clears the
// registry. Execute fails afterwards.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()

	s.tasks.Range(func(id ID, _ Task) bool {
		s.tasks.Delete(id)
		return true
	})
}

func (s *Service) run(ctx context.Context, cancel context.CancelFunc, t Task) {
	defer s.wg.Done()
	defer cancel()

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		s.reject(t)
		return
	}
	defer func() { <-s.slots }()

	err := s.invoke(ctx, t)
	s.completed(t, err)
}

func (s *Service) invoke(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = faults.New(goerrors.CategoryInternal, faults.CodeTaskPanic,
				fmt.Sprintf("task %s panicked: %v", t.ID(), r))
		}
	}()

	t.Result().Add(t.ID(), KeyStarted)
	return t.Execute(ctx)
}

// completed guards the one invariant the runner enforces: a finished task
// reports success or error.
func (s *Service) completed(t Task, err error) {
	res := t.Result()
	id := t.ID()

	if err != nil && !res.IsComplete() {
		if t.Cancelled() {
			err = faults.Wrap(err, goerrors.CategoryOperation, faults.CodeTaskCancelled, "task "+string(id)+" was cancelled")
			res.Error(id, KeyCancelled, err)
		} else {
			res.Error(id, KeyFailed, err)
		}
	}

	if !res.IsComplete() {
		s.logger.Error("task finished without reporting an outcome", "task_id", id)
		res.Error(id, KeyIncomplete, faults.New(goerrors.CategoryInternal, faults.CodeTaskIncomplete,
			"task "+string(id)+" finished with neither success nor error"))
		return
	}

	if res.HasError() {
		action, target := res.Description()
		s.logger.Debug("task failed", "task_id", id, "action", action, "target", target, "error", res.Err())
	}
}

func (s *Service) reject(t Task) {
	id := t.ID()
	if t.Cancelled() {
		t.Result().Error(id, KeyCancelled, faults.New(goerrors.CategoryOperation, faults.CodeTaskCancelled,
			"task "+string(id)+" was cancelled before it started"))
		return
	}
	t.Result().Error(id, KeyRejected, faults.New(goerrors.CategoryOperation, faults.CodeRunnerStopped,
		"task "+string(id)+" was not started: task service stopped"))
}

// IsAlreadyRunning reports a rejected duplicate serial submission.
func IsAlreadyRunning(err error) bool {
	return faults.HasCode(err, faults.CodeTaskAlreadyRunning)
}

// IsIncomplete reports an outcome forced by the runner's invariant guard.
func IsIncomplete(err error) bool {
	return faults.HasCode(err, faults.CodeTaskIncomplete)
}

// IsCancelled reports a task cancelled before it could succeed.
func IsCancelled(err error) bool {
	return faults.HasCode(err, faults.CodeTaskCancelled)
}

// IsStopped reports a submission or task refused by a stopped runner.
func IsStopped(err error) bool {
	return faults.HasCode(err, faults.CodeRunnerStopped)
}

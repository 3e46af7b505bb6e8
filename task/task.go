package task

import (
	"context"
	"sync"
	"sync/atomic"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/google/uuid"
)

// Task is a unit of asynchronous work run by a Service.
type Task interface {
	// ID is empty until Init runs.
	ID() ID
	// Init assigns a fresh ID. Calling it twice reassigns the ID.
	Init()
	// Result is created with the task and outlives its execution.
	Result() *Result
	// Execute does the work. By the time it returns, Result must report
	// success or error; the runner marks it errored otherwise.
	Execute(ctx context.Context) error
	// Cancel flags the task and cancels the context it runs under.
	Cancel()
	Cancelled() bool
	// Attach hands the task the cancel func of its execution context.
	Attach(cancel context.CancelFunc)
}

// Base implements everything in Task except Execute. Embed it by pointer or
// value in concrete tasks.
type Base struct {
	id         ID
	resultOnce sync.Once
	result     *Result
	cancelled  atomic.Bool
	mu         sync.Mutex
	cancel     context.CancelFunc
}

func (b *Base) ID() ID { return b.id }

func (b *Base) Init() {
	b.id = ID(uuid.NewString())
	b.Result()
}

func (b *Base) Result() *Result {
	b.resultOnce.Do(func() {
		b.result = NewResult()
	})
	return b.result
}

func (b *Base) Attach(cancel context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel = cancel
	if b.cancelled.Load() && cancel != nil {
		cancel()
	}
}

func (b *Base) Cancel() {
	b.cancelled.Store(true)
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (b *Base) Cancelled() bool { return b.cancelled.Load() }

// AddEvent appends key to the event log.
func (b *Base) AddEvent(key string) {
	b.Result().Add(b.id, key)
}

// Error records a failure.
func (b *Base) Error(key string, err error) {
	b.Result().Error(b.id, key, err)
}

// Describe sets the action/target description of the result.
func (b *Base) Describe(action, target string) {
	b.Result().Describe(action, target)
}

// Succeed records success with value. A cancelled task records a
// TASK_CANCELLED error instead.
func (b *Base) Succeed(key string, value any) {
	if b.Cancelled() {
		b.Error(key, faults.New(goerrors.CategoryOperation, faults.CodeTaskCancelled,
			"task "+string(b.id)+" was cancelled"))
		return
	}
	b.Result().Success(b.id, key, value)
}

// InitRetry resets the outcome and cancellation flag, keeping events.
func (b *Base) InitRetry() {
	b.cancelled.Store(false)
	b.Result().InitRetry()
}

// Func adapts a function into a Task.
type Func struct {
	Base
	fn func(ctx context.Context, t *Func) error
}

// NewFunc wraps fn. fn reports through t.Succeed/t.Error; a returned error is
// recorded by the runner.
func NewFunc(fn func(ctx context.Context, t *Func) error) *Func {
	return &Func{fn: fn}
}

func (f *Func) Execute(ctx context.Context) error {
	return f.fn(ctx, f)
}

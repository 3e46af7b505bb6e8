package task

import (
	"sync"
	"time"
)

// ID identifies one submission of a task. It is a random UUID assigned by
// Init and never reused.
type ID string

// Event is one immutable entry of a task's event log.
type Event struct {
	TaskID     ID
	MessageKey string
	Success    bool
	Err        error
	CTime      time.Time
}

// Result is the mutable outcome of a task. The owning task (or its runner)
// is the only writer; any goroutine may read it.
type Result struct {
	mu       sync.RWMutex
	success  bool
	hasError bool
	err      error
	events   []Event
	action   string
	target   string
	value    any
	done     chan struct{}
	now      func() time.Time
}

// NewResult returns an empty, incomplete result.
func NewResult() *Result {
	return &Result{
		done: make(chan struct{}),
		now:  time.Now,
	}
}

// Add appends a non-terminal event.
func (r *Result) Add(id ID, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(Event{TaskID: id, MessageKey: key})
}

// Error records err under key and marks the result as errored.
func (r *Result) Error(id ID, key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hasError = true
	r.err = err
	r.appendLocked(Event{TaskID: id, MessageKey: key, Err: err})
	r.completeLocked()
}

// Success stores value, records key and marks the result as successful.
func (r *Result) Success(id ID, key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success = true
	r.value = value
	r.appendLocked(Event{TaskID: id, MessageKey: key, Success: true})
	r.completeLocked()
}

// Describe sets the human readable action and target of the task.
func (r *Result) Describe(action, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.action = action
	r.target = target
}

// Description returns the action and target set by Describe.
func (r *Result) Description() (action, target string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.action, r.target
}

// InitRetry clears the outcome so the task can run again. The event log is
// kept and later events are appended to it.
func (r *Result) InitRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success = false
	r.hasError = false
	r.err = nil
	r.value = nil
	select {
	case <-r.done:
		r.done = make(chan struct{})
	default:
	}
}

// IsComplete reports whether the task succeeded or failed.
func (r *Result) IsComplete() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.success || r.hasError
}

// Succeeded reports whether Success was recorded.
func (r *Result) Succeeded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.success
}

// HasError reports whether Error was recorded.
func (r *Result) HasError() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasError
}

// Err is the last error recorded, if any.
func (r *Result) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Value is the value stored by Success.
func (r *Result) Value() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Events returns a snapshot of the event log in append order.
func (r *Result) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.events...)
}

// Done is closed once the result first becomes complete. After InitRetry a
// fresh channel is returned.
func (r *Result) Done() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.done
}

func (r *Result) appendLocked(e Event) {
	e.CTime = r.now()
	r.events = append(r.events, e)
}

func (r *Result) completeLocked() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

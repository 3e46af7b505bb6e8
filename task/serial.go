package task

import (
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/puzpuzpuz/xsync/v3"
)

// SerialTask is a task with a caller defined serial identifier. At most one
// task per serial identifier runs at a time.
type SerialTask interface {
	Task
	SerialID() string
}

// MergeFunc carries state from a completed predecessor into its successor
// before the successor is submitted.
type MergeFunc[T SerialTask] func(prev, next T)

// SerialService de-duplicates submissions by serial identifier on top of a
// Service.
type SerialService[T SerialTask] struct {
	*Service
	merge   MergeFunc[T]
	mu      sync.Mutex
	serials *xsync.MapOf[string, T]
}

// NewSerialService wraps base. merge may be nil.
func NewSerialService[T SerialTask](base *Service, merge MergeFunc[T]) *SerialService[T] {
	return &SerialService[T]{
		Service: base,
		merge:   merge,
		serials: xsync.NewMapOf[string, T](),
	}
}

// Execute submits t unless a task with the same serial identifier is still
// running, in which case it fails with TASK_ALREADY_RUNNING and t is not
// submitted.
func (s *SerialService[T]) Execute(t T) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	serial := t.SerialID()
	prev, hadPrev := s.serials.Load(serial)
	if hadPrev {
		if !prev.Result().IsComplete() {
			return "", faults.New(goerrors.CategoryConflict, faults.CodeTaskAlreadyRunning,
				"task with serial "+serial+" is already running").
				WithMetadata(map[string]any{"serial": serial, "task_id": string(prev.ID())})
		}
		if s.merge != nil {
			s.merge(prev, t)
		}
	}

	s.serials.Store(serial, t)
	id, err := s.Service.Execute(t)
	if err != nil {
		if hadPrev {
			s.serials.Store(serial, prev)
		} else {
			s.serials.Delete(serial)
		}
		return "", err
	}
	return id, nil
}

// BySerial returns the latest task submitted under serial.
func (s *SerialService[T]) BySerial(serial string) (T, bool) {
	return s.serials.Load(serial)
}

// Running reports whether a task for serial is registered and incomplete.
func (s *SerialService[T]) Running(serial string) bool {
	t, ok := s.serials.Load(serial)
	return ok && !t.Result().IsComplete()
}

// Stop stops the underlying Service and clears the serial index.
func (s *SerialService[T]) Stop() {
	s.Service.Stop()
	s.serials.Range(func(serial string, _ T) bool {
		s.serials.Delete(serial)
		return true
	})
}

// Carrier is implemented by serial tasks that inherit state from the
// completed task they replace.
type Carrier interface {
	CarryFrom(prev SerialTask)
}

// CarryForward is a MergeFunc for heterogeneous serial services. It hands
// prev to next when next is a Carrier.
func CarryForward(prev, next SerialTask) {
	if c, ok := next.(Carrier); ok {
		c.CarryFrom(prev)
	}
}

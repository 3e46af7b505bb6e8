package finder

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-shards/internal/faults"
	"github.com/goliatone/go-repository-shards/shardset"
	"github.com/goliatone/go-repository-shards/task"
)

// KeyWarmDone is recorded when a warm task finished every lookup.
const KeyWarmDone = "warm.done"

// WarmReport is the result value of a WarmTask.
type WarmReport struct {
	Attempt int
	Lookups int
	Found   int
}

// WarmTask preloads a batch of lookups into a finder's cache. It is a serial
// task keyed by shard set, so one warm-up per set runs at a time.
//
// Run it on a runner other than the finder's dispatcher: fan-out lookups
// need free worker slots of their own.
type WarmTask[T shardset.Shardable] struct {
	task.Base
	finder   *Finder[T]
	lookups  []Lookup
	attempts int
}

// NewWarmTask returns a task warming lookups through f.
func NewWarmTask[T shardset.Shardable](f *Finder[T], lookups ...Lookup) *WarmTask[T] {
	return &WarmTask[T]{finder: f, lookups: lookups}
}

// WarmSerial is the serial identifier of warm tasks for a shard set.
func WarmSerial(setName string) string {
	return "warm::" + setName
}

func (w *WarmTask[T]) SerialID() string { return WarmSerial(w.finder.Name()) }

// Attempts counts executions across every warm task this one replaced.
func (w *WarmTask[T]) Attempts() int { return w.attempts }

// CarryFrom inherits the attempt counter of a completed predecessor.
func (w *WarmTask[T]) CarryFrom(prev task.SerialTask) {
	if p, ok := prev.(*WarmTask[T]); ok {
		w.attempts = p.attempts
	}
}

func (w *WarmTask[T]) Execute(ctx context.Context) error {
	w.attempts++
	w.Describe("warm", w.finder.Name())

	report := WarmReport{Attempt: w.attempts, Lookups: len(w.lookups)}
	for _, lookup := range w.lookups {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, found, err := w.finder.Lookup(ctx, lookup)
		if err != nil {
			return faults.Wrap(err, goerrors.CategoryOperation, faults.CodeWarmFailed,
				"warm "+w.finder.Name()+" "+lookup.Method()+" "+shardset.Describe(lookup.Fields()))
		}
		if found {
			report.Found++
		}
	}

	w.Succeed(KeyWarmDone, report)
	return nil
}

// MergeWarm is a MergeFunc for services running only warm tasks of one
// entity type.
func MergeWarm[T shardset.Shardable](prev, next *WarmTask[T]) {
	next.CarryFrom(prev)
}

package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, workers int) *Service {
	t.Helper()
	svc, err := NewService(Config{Workers: workers})
	require.NoError(t, err)
	t.Cleanup(svc.Stop)
	return svc
}

func await(t *testing.T, svc *Service, id ID) *Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := svc.Await(ctx, id)
	require.NoError(t, err)
	return res
}

func TestService_ExecuteSuccess(t *testing.T) {
	svc := newService(t, 2)

	fn := NewFunc(func(ctx context.Context, t *Func) error {
		t.Describe("count", "accounts")
		t.AddEvent("count.started")
		t.Succeed("count.done", 42)
		return nil
	})

	id, err := svc.Execute(fn)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, fn.ID())

	res := await(t, svc, id)
	assert.True(t, res.Succeeded())
	assert.False(t, res.HasError())
	assert.Equal(t, 42, res.Value())

	action, target := res.Description()
	assert.Equal(t, "count", action)
	assert.Equal(t, "accounts", target)

	events := res.Events()
	require.Len(t, events, 3)
	assert.Equal(t, KeyStarted, events[0].MessageKey)
	assert.Equal(t, "count.started", events[1].MessageKey)
	assert.Equal(t, "count.done", events[2].MessageKey)
	assert.True(t, events[2].Success)
	for _, e := range events {
		assert.Equal(t, id, e.TaskID)
		assert.False(t, e.CTime.IsZero())
	}
}

func TestService_IDsAreUnique(t *testing.T) {
	svc := newService(t, 4)
	seen := map[ID]bool{}
	for i := 0; i < 50; i++ {
		id, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
			t.Succeed("ok", nil)
			return nil
		}))
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestService_ReturnedErrorMarksFailure(t *testing.T) {
	svc := newService(t, 1)
	boom := errors.New("boom")

	id, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
		return boom
	}))
	require.NoError(t, err)

	res := await(t, svc, id)
	assert.True(t, res.HasError())
	assert.ErrorIs(t, res.Err(), boom)
}

func TestService_IncompleteTaskIsForcedToError(t *testing.T) {
	svc := newService(t, 1)

	id, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
		t.AddEvent("did.something")
		return nil
	}))
	require.NoError(t, err)

	res := await(t, svc, id)
	assert.True(t, res.HasError())
	assert.False(t, res.Succeeded())
	assert.True(t, IsIncomplete(res.Err()), "got %v", res.Err())

	events := res.Events()
	assert.Equal(t, KeyIncomplete, events[len(events)-1].MessageKey)
}

func TestService_PanicBecomesError(t *testing.T) {
	svc := newService(t, 1)

	id, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
		panic("kaboom")
	}))
	require.NoError(t, err)

	res := await(t, svc, id)
	assert.True(t, res.HasError())
	assert.Contains(t, res.Err().Error(), "kaboom")
}

func TestService_ResultUnknownID(t *testing.T) {
	svc := newService(t, 1)
	assert.Nil(t, svc.Result("missing"))
	assert.Nil(t, svc.Cancel("missing"))

	_, err := svc.Await(context.Background(), "missing")
	assert.Error(t, err)
}

func TestService_CancelRunningTask(t *testing.T) {
	svc := newService(t, 1)
	started := make(chan struct{})

	id, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
		t.AddEvent("waiting")
		close(started)
		<-ctx.Done()
		t.Succeed("too.late", "value")
		return nil
	}))
	require.NoError(t, err)
	<-started

	cancelled := svc.Cancel(id)
	require.NotNil(t, cancelled)
	assert.True(t, cancelled.Cancelled())
	assert.Nil(t, svc.Result(id), "cancelled task must be unregistered")

	res := cancelled.Result()
	select {
	case <-res.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled task did not unwind")
	}
	assert.False(t, res.Succeeded())
	assert.True(t, IsCancelled(res.Err()), "got %v", res.Err())

	keys := make([]string, 0)
	for _, e := range res.Events() {
		keys = append(keys, e.MessageKey)
	}
	assert.Contains(t, keys, "waiting", "cancellation keeps earlier events")
}

func TestService_CancelQueuedTask(t *testing.T) {
	svc := newService(t, 1)
	release := make(chan struct{})
	defer close(release)

	_, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
		<-release
		t.Succeed("ok", nil)
		return nil
	}))
	require.NoError(t, err)

	var ran atomic.Bool
	id, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
		ran.Store(true)
		t.Succeed("ok", nil)
		return nil
	}))
	require.NoError(t, err)

	cancelled := svc.Cancel(id)
	require.NotNil(t, cancelled)

	select {
	case <-cancelled.Result().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("queued task was not released")
	}
	assert.False(t, ran.Load())
	assert.True(t, IsCancelled(cancelled.Result().Err()))
}

func TestService_BoundsConcurrency(t *testing.T) {
	const workers = 3
	svc := newService(t, workers)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	ids := make([]ID, 0, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		id, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			t.Succeed("ok", nil)
			return nil
		}))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	wg.Wait()

	for _, id := range ids {
		await(t, svc, id)
	}
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Equal(t, 12, svc.Len())

	svc.Forget(ids[0])
	assert.Equal(t, 11, svc.Len())
}

func TestService_ExecuteDoesNotBlock(t *testing.T) {
	svc := newService(t, 1)
	release := make(chan struct{})
	defer close(release)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			_, err := svc.Execute(NewFunc(func(ctx context.Context, t *Func) error {
				select {
				case <-release:
				case <-ctx.Done():
				}
				t.Succeed("ok", nil)
				return nil
			}))
			assert.NoError(t, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Execute blocked on a saturated pool")
	}
}

func TestService_Stop(t *testing.T) {
	svc, err := NewService(Config{Workers: 1})
	require.NoError(t, err)

	started := make(chan struct{})
	running := NewFunc(func(ctx context.Context, t *Func) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	_, err = svc.Execute(running)
	require.NoError(t, err)
	<-started

	queued := NewFunc(func(ctx context.Context, t *Func) error {
		t.Succeed("ok", nil)
		return nil
	})
	_, err = svc.Execute(queued)
	require.NoError(t, err)

	svc.Stop()

	assert.True(t, running.Result().HasError())
	assert.True(t, queued.Result().IsComplete())
	assert.Equal(t, 0, svc.Len())

	_, err = svc.Execute(NewFunc(func(ctx context.Context, t *Func) error { return nil }))
	assert.True(t, IsStopped(err), "got %v", err)

	svc.Stop()
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Workers: 0}.Validate())
	assert.Error(t, Config{Workers: -1}.Validate())

	_, err := NewService(Config{})
	assert.Error(t, err)
}

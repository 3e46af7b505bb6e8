// Package task runs units of asynchronous work with an identity, a
// structured result and cooperative cancellation.
//
// # Lifecycle
//
// A task moves CREATED -> RUNNING -> SUCCEEDED | FAILED. Cancelling a running
// task cancels the context handed to Execute; the task must observe it. A
// cancelled task can no longer report success, and events already recorded
// stay in its log.
//
//	svc, _ := task.NewService(task.DefaultConfig())
//	defer svc.Stop()
//
//	id, _ := svc.Execute(task.NewFunc(func(ctx context.Context, t *task.Func) error {
//		t.Describe("reindex", "accounts")
//		t.Succeed("reindex.done", 42)
//		return nil
//	}))
//	res, _ := svc.Await(ctx, id)
//
// # Runner guarantees
//
// Execute registers the task and returns its ID immediately; at most
// Config.Workers tasks execute at once. A task that returns without
// recording success or error is force-marked errored with TASK_INCOMPLETE so
// nobody waiting on Result.Done blocks forever. Panics become TASK_PANIC
// errors.
//
// # Serial de-duplication
//
// SerialService rejects a submission whose serial identifier belongs to a
// task that has not completed yet. The check, the optional merge from the
// completed predecessor and the registration happen under one lock.
package task

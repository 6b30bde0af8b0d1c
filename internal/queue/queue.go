package queue

import (
	"github.com/vk/taskgridgo/internal/pool"
	"github.com/vk/taskgridgo/internal/task"
)

// TaskQueue assembles the scheduling engine with a concrete LIFO ready queue
// and a pool-backed deallocator, and exposes the construction surface used to
// build graphs. All methods are safe for concurrent use by multiple workers.
type TaskQueue struct {
	engine *Engine
	ready  LIFO
	pool   *pool.Pool
}

// New creates a task queue drawing node storage from p.
func New(p *pool.Pool) *TaskQueue {
	q := &TaskQueue{pool: p}
	q.engine = NewEngine(q)
	return q
}

// Push implements Backend. The engine calls it whenever a task becomes ready.
func (q *TaskQueue) Push(t *task.Task) {
	q.ready.Push(t)
}

// Deallocate implements Backend, returning spent node storage to the pool.
func (q *TaskQueue) Deallocate(t *task.Task) {
	q.pool.Put(t)
}

// Pop hands the caller the next ready task, transferring ownership. The
// caller must run it and then call Complete exactly once.
func (q *TaskQueue) Pop() (*task.Task, bool) {
	return q.ready.Pop()
}

// Complete transitions a popped-and-run task out of execution. See
// Engine.Complete.
func (q *TaskQueue) Complete(t *task.Task) {
	q.engine.Complete(t)
}

// IsDone reports whether the graph has drained to quiescence.
func (q *TaskQueue) IsDone() bool {
	return q.engine.IsDone()
}

// Close checks the teardown invariant: every scheduled task has completed.
// It panics otherwise.
func (q *TaskQueue) Close() {
	q.engine.ready.AssertDrained()
}

// Spawn creates a runnable task with no predecessor and schedules it. The
// returned handle holds a reference on the task; the caller must hand it to
// Release when done with it. The task may start running, and even complete,
// before Spawn returns; the handle is what keeps it valid to the caller.
func (q *TaskQueue) Spawn(body task.Body) *task.Task {
	t := q.pool.GetRunnable(body)
	q.engine.ScheduleRunnable(t)
	return t
}

// SpawnAfter creates a runnable task that must wait for pred to complete,
// then schedules it. The caller's handle on pred keeps it alive across the
// call; no extra reference is taken for the edge, unlike a respawn's, because
// the append attempt happens before SpawnAfter returns.
func (q *TaskQueue) SpawnAfter(pred *task.Task, body task.Body) *task.Task {
	t := q.pool.GetRunnable(body)
	t.SetPredecessor(pred)
	q.engine.ScheduleRunnable(t)
	return t
}

// WhenAll creates an aggregate that completes once every pred has completed,
// and schedules it. Each dependence slot takes its own reference on its
// predecessor, released slot by slot as the scan resolves them. The caller's
// handles on preds keep them alive until those references are in place.
func (q *TaskQueue) WhenAll(preds ...*task.Task) *task.Task {
	deps := make([]*task.Task, len(preds))
	for i, p := range preds {
		p.Retain()
		deps[i] = p
	}
	t := q.pool.GetAggregate(deps)
	q.engine.ScheduleAggregate(t)
	return t
}

// Release drops a creator handle obtained from Spawn, SpawnAfter, or
// WhenAll, deallocating the node if that was its last reference. The handle
// must not be used afterwards.
func (q *TaskQueue) Release(t *task.Task) {
	if t.DecrementAndCheckReferenceCount() {
		q.Deallocate(t)
	}
}

// ScheduleRunnable exposes the engine's predecessor-resolution primitive for
// drivers that construct tasks themselves rather than through Spawn.
func (q *TaskQueue) ScheduleRunnable(t *task.Task) {
	q.engine.ScheduleRunnable(t)
}

// ScheduleAggregate exposes the engine's aggregate scan. See
// Engine.ScheduleAggregate.
func (q *TaskQueue) ScheduleAggregate(t *task.Task) {
	q.engine.ScheduleAggregate(t)
}

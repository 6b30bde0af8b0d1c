package queue

import "github.com/vk/taskgridgo/internal/task"

// Backend supplies the storage primitives the scheduling engine is generic
// over: ready-queue insertion and the deallocation that returns a node's
// storage to its pool. TaskQueue is the default implementer; tests substitute
// their own to observe the engine in isolation.
type Backend interface {
	// Push inserts a runnable task into the concrete ready queue.
	Push(t *task.Task)
	// Deallocate returns a node whose reference count reached zero.
	Deallocate(t *task.Task)
}

// Engine implements the completion/scheduling protocol over any Backend.
// It owns the ready count and nothing else.
type Engine struct {
	ready   ReadyCount
	backend Backend
}

// NewEngine creates an engine over the given backend.
func NewEngine(b Backend) *Engine {
	return &Engine{backend: b}
}

// IsDone reports whether the graph has drained to quiescence. See
// ReadyCount.IsDone for the read's (lack of) ordering guarantees.
func (e *Engine) IsDone() bool {
	return e.ready.IsDone()
}

// Complete transitions a task out of execution. For a runnable task it is
// called by the driver once the task's body has returned; for an aggregate it
// is invoked internally once every predecessor has resolved. The task must
// not be touched by the caller afterwards: it may respawn, be handed to a
// new predecessor's wait list, or be deallocated, all before Complete
// returns.
func (e *Engine) Complete(t *task.Task) {
	if t.IsRunnable() {
		e.completeRunnable(t)
	} else {
		e.completeAggregate(t)
	}
}

func (e *Engine) completeRunnable(t *task.Task) {
	if t.RespawnFlag() {
		e.ScheduleRunnable(t)
	} else {
		e.finalize(t)
	}
	// A runnable task popped from a ready queue finished executing. If it
	// respawned into a ready queue, the ready count was re-incremented by
	// the scheduling path above; if it finished, every waiter it woke was
	// counted before being enqueued. Either way the count still covers all
	// live work, so the decrement paired with this task's own push is safe
	// here.
	e.ready.Decrement()
}

// completeAggregate finalizes a join. Aggregates never respawn and were
// never counted as ready, so the ready count is untouched.
func (e *Engine) completeAggregate(t *task.Task) {
	e.finalize(t)
}

// finalize closes out a completed task: drain its wait list, dispatching
// each waiter back into scheduling, then drop the task's own lifecycle
// reference and deallocate if that was the last one. Waiters whose remaining
// dependencies are already satisfied complete synchronously inside the
// drain, so call depth grows with dependency-chain length.
func (e *Engine) finalize(t *task.Task) {
	t.ConsumeWaitQueue(func(w *task.Task) {
		if w.IsRunnable() {
			e.ScheduleRunnable(w)
		} else {
			e.ScheduleAggregate(w)
		}
	})
	if t.DecrementAndCheckReferenceCount() {
		e.backend.Deallocate(t)
	}
}

// ScheduleRunnable resolves a runnable task's predecessor, if any, and either
// parks the task on the predecessor's wait list or pushes it ready. It serves
// both the initial scheduling of a freshly spawned task and the respawn
// branch of Complete. The caller must hold exclusive access to t and must not
// touch it again after this returns: once parked or pushed, another worker
// may pick it up at any time.
func (e *Engine) ScheduleRunnable(t *task.Task) {
	// Settle every field of t before the append attempt below: a successful
	// append hands ownership of t to the predecessor's completion path,
	// which may run its own ScheduleRunnable on t concurrently, so t must
	// not be touched again once it is published.
	respawning := t.RespawnFlag()
	t.SetRespawnFlag(false)

	ready := true

	if t.HasPredecessor() {
		pred := t.Predecessor()
		t.ClearPredecessor()

		// If the append succeeds the predecessor has not completed and
		// now owns t; if it fails the predecessor is done and t is
		// ready immediately. The CAS inside publishes the cleared
		// fields of t ahead of the race with pred's completion.
		ready = !pred.TryAddWaiting(t)

		if respawning {
			// The respawn took a reference on pred when it declared
			// the dependency, so that pred completing before the
			// append above could not deallocate it. That reference
			// can be dropped now that the append has been attempted.
			if pred.DecrementAndCheckReferenceCount() {
				e.backend.Deallocate(pred)
			}
		}
		// pred may be gone at this point.
	}

	if ready {
		e.ready.Increment()
		e.backend.Push(t)
	}
}

// ScheduleAggregate resolves a join's predecessors. It scans the dependence
// slots from last to first, parking the aggregate on the first predecessor
// that has not completed yet; slots already resolved on an earlier wake are
// nil and skipped. Each slot's reference on its predecessor is released as
// the slot is resolved. If the scan finds no incomplete predecessor the
// aggregate's dependencies are fully satisfied and it completes now. The
// caller must hold exclusive access to t and must not touch it afterwards.
func (e *Engine) ScheduleAggregate(t *task.Task) {
	deps := t.AggregateDependences()
	parked := false

	for i := t.DependenceCount() - 1; i >= 0 && !parked; i-- {
		pred := deps[i]
		deps[i] = nil
		if pred == nil {
			continue
		}

		// A successful append means pred is incomplete; stop here and
		// leave the remaining slots for the next wake.
		parked = pred.TryAddWaiting(t)

		// The slot's claim on pred ends with this attempt either way:
		// parked, the wait-list membership keeps t (not pred) alive;
		// not parked, pred is already done.
		if pred.DecrementAndCheckReferenceCount() {
			e.backend.Deallocate(pred)
		}
	}

	if !parked {
		e.completeAggregate(t)
	}
}

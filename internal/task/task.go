package task

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind distinguishes the two node variants carried by a Task.
type Kind uint8

const (
	// KindRunnable is a task with an executable body and at most one predecessor.
	KindRunnable Kind = iota
	// KindAggregate is a when-all join over an ordered list of predecessors.
	// It has no body and completes once every predecessor has completed.
	KindAggregate
)

// Body is the executable payload of a runnable task. It receives the task it
// belongs to so that it can request a respawn via Respawn or RespawnAfter.
// A body is invoked by exactly one worker at a time; successive invocations of
// the same (respawning) body are sequenced by the queue, so a body may keep
// plain local state across respawns.
type Body func(self *Task)

// Task is a single node in the dependency graph. Obtain instances from a
// pool.Pool rather than constructing them directly; the zero value is not
// usable.
type Task struct {
	id   uuid.UUID
	kind Kind

	// refs counts the entities that need this node to stay alive: the
	// scheduling lifecycle itself, the creator's handle, and one per
	// aggregate dependence slot or pending respawn edge naming this node
	// as predecessor. Reaching zero authorizes deallocation, exactly once.
	refs atomic.Int32

	// waiters is the head of the intrusive wait list: tasks parked until
	// this node completes. Once the node completes, the head is swapped to
	// the closed sentinel and never reopens (until pool recycling).
	waiters atomic.Pointer[Task]

	// next links this node into whichever intrusive list currently owns it
	// (a predecessor's wait list or a ready queue). Ownership is exclusive
	// at a time, so one link suffices. Written by the owner, published to
	// other goroutines by the list's own atomic head operations.
	next *Task

	// Runnable-only fields, owner-exclusive.
	body        Body
	predecessor *Task
	respawn     bool

	// Aggregate-only field, owner-exclusive. Slots are nilled out as the
	// scheduling scan resolves them.
	deps []*Task
}

// InitRunnable readies a (fresh or recycled) node as a runnable task.
// The reference count starts at two: one held by the scheduling lifecycle,
// dropped when the task finishes, and one held by the creator's handle,
// dropped by the queue's Release.
func (t *Task) InitRunnable(body Body) {
	t.id = uuid.New()
	t.kind = KindRunnable
	t.body = body
	t.refs.Store(2)
	t.waiters.Store(nil)
}

// InitAggregate readies a node as a when-all join over deps. The slice is
// retained and mutated by the scheduling scan; callers hand over ownership.
// Reference count starts as for InitRunnable.
func (t *Task) InitAggregate(deps []*Task) {
	t.id = uuid.New()
	t.kind = KindAggregate
	t.deps = deps
	t.refs.Store(2)
	t.waiters.Store(nil)
}

// Reset clears all node state so the storage can be recycled.
func (t *Task) Reset() {
	t.id = uuid.Nil
	t.kind = KindRunnable
	t.body = nil
	t.predecessor = nil
	t.respawn = false
	t.deps = nil
	t.next = nil
	t.refs.Store(0)
	t.waiters.Store(nil)
}

// ID returns the node's identifier, used for log correlation only.
func (t *Task) ID() uuid.UUID { return t.id }

// Kind returns the node variant.
func (t *Task) Kind() Kind { return t.kind }

// IsRunnable reports whether the node is a runnable task (as opposed to an
// aggregate join).
func (t *Task) IsRunnable() bool { return t.kind == KindRunnable }

// Run invokes the task's body, if any. Only the worker that popped the task
// from a ready queue may call this.
func (t *Task) Run() {
	if t.body != nil {
		t.body(t)
	}
}

// HasPredecessor reports whether a predecessor is currently attached.
func (t *Task) HasPredecessor() bool { return t.predecessor != nil }

// Predecessor returns the attached predecessor, or nil.
func (t *Task) Predecessor() *Task { return t.predecessor }

// ClearPredecessor detaches the predecessor reference. The caller has
// exclusive access to the task, so no atomicity is needed on this side; the
// clear is published to the predecessor's completion path by the CAS inside
// the subsequent TryAddWaiting call.
func (t *Task) ClearPredecessor() { t.predecessor = nil }

// SetPredecessor attaches pred as the task's single predecessor. The caller
// must guarantee pred stays alive until the task has been scheduled against
// it (a creator handle or an explicit Retain suffices).
func (t *Task) SetPredecessor(pred *Task) { t.predecessor = pred }

// RespawnFlag reports whether the task asked to be re-enqueued instead of
// finished when it completes.
func (t *Task) RespawnFlag() bool { return t.respawn }

// SetRespawnFlag sets or clears the respawn flag.
func (t *Task) SetRespawnFlag(v bool) { t.respawn = v }

// Respawn, called from inside the task's body, requests that the task be
// rescheduled rather than finished when the current execution concludes.
func (t *Task) Respawn() { t.respawn = true }

// RespawnAfter requests a respawn that must wait for pred to complete first.
// It takes a reference on pred so that pred cannot be deallocated before the
// rescheduling path has attempted to park this task on it; that reference is
// released inside the scheduling path itself.
func (t *Task) RespawnAfter(pred *Task) {
	pred.Retain()
	t.predecessor = pred
	t.respawn = true
}

// Retain adds a reference to the node.
func (t *Task) Retain() { t.refs.Add(1) }

// DecrementAndCheckReferenceCount drops one reference and reports whether the
// count reached zero, i.e. whether the caller must deallocate the node. At
// most one caller ever observes true.
func (t *Task) DecrementAndCheckReferenceCount() bool {
	n := t.refs.Add(-1)
	if n < 0 {
		panic("task: reference count underflow")
	}
	return n == 0
}

// ReferenceCount returns the current count. Test hook; racy by nature.
func (t *Task) ReferenceCount() int32 { return t.refs.Load() }

// AggregateDependences returns the aggregate's ordered predecessor slots.
// The scheduling scan nils slots in place as it resolves them.
func (t *Task) AggregateDependences() []*Task { return t.deps }

// DependenceCount returns the number of predecessor slots, including ones
// already resolved to nil.
func (t *Task) DependenceCount() int { return len(t.deps) }

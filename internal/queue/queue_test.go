package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskgridgo/internal/pool"
	"github.com/vk/taskgridgo/internal/task"
)

// newQueue returns a fresh queue and its pool, for leak assertions.
func newQueue(t *testing.T) (*TaskQueue, *pool.Pool) {
	t.Helper()
	p := pool.New()
	return New(p), p
}

// drive pops, runs, and completes tasks until the queue reports quiescence.
// It returns how many executions happened. Single-threaded by design; the
// concurrency paths are covered by the executor tests.
func drive(q *TaskQueue) int {
	runs := 0
	for {
		tk, ok := q.Pop()
		if !ok {
			if q.IsDone() {
				return runs
			}
			continue
		}
		tk.Run()
		q.Complete(tk)
		runs++
	}
}

func TestSpawnRunsImmediately(t *testing.T) {
	q, p := newQueue(t)

	ran := 0
	h := q.Spawn(func(*task.Task) { ran++ })
	assert.False(t, q.IsDone(), "a spawned root task counts as active")

	tk, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, h, tk)

	tk.Run()
	q.Complete(tk)

	assert.Equal(t, 1, ran)
	assert.True(t, q.IsDone())

	// The creator handle is the last reference; releasing it returns the
	// node to the pool.
	assert.EqualValues(t, 1, p.Outstanding())
	q.Release(h)
	assert.EqualValues(t, 0, p.Outstanding())

	q.Close()
}

func TestSuccessorWaitsForPredecessor(t *testing.T) {
	q, p := newQueue(t)

	var order []string
	a := q.Spawn(func(*task.Task) { order = append(order, "a") })
	b := q.SpawnAfter(a, func(*task.Task) { order = append(order, "b") })

	// Only a is ready; b is parked on a's wait list.
	ta, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, a, ta)
	_, ok = q.Pop()
	require.False(t, ok, "b must not be ready before a completes")
	assert.False(t, q.IsDone(), "a is still running")

	ta.Run()
	q.Complete(ta)

	// Completing a drained its wait list and pushed b ready.
	tb, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, b, tb)
	assert.False(t, q.IsDone())

	tb.Run()
	q.Complete(tb)
	assert.True(t, q.IsDone())
	assert.Equal(t, []string{"a", "b"}, order)

	q.Release(a)
	q.Release(b)
	assert.EqualValues(t, 0, p.Outstanding())
	q.Close()
}

func TestSpawnAfterCompletedPredecessorIsReadyImmediately(t *testing.T) {
	q, p := newQueue(t)

	a := q.Spawn(nil)
	require.Equal(t, 1, drive(q))

	// a has completed and its wait list is closed; the append fails and b
	// goes straight to the ready queue.
	ran := false
	b := q.SpawnAfter(a, func(*task.Task) { ran = true })
	require.Equal(t, 1, drive(q))
	assert.True(t, ran)

	q.Release(a)
	q.Release(b)
	assert.EqualValues(t, 0, p.Outstanding())
	q.Close()
}

func TestRespawnRunsAgainBeforeFinishing(t *testing.T) {
	q, p := newQueue(t)

	runs := 0
	h := q.Spawn(func(self *task.Task) {
		runs++
		if runs == 1 {
			self.Respawn()
		}
	})

	// First execution respawns: the task is active again, not done.
	tk, ok := q.Pop()
	require.True(t, ok)
	tk.Run()
	q.Complete(tk)
	assert.False(t, q.IsDone(), "a respawned task keeps the graph active")

	// Second execution finishes it.
	tk, ok = q.Pop()
	require.True(t, ok)
	require.Same(t, h, tk, "a respawn reuses the same node")
	tk.Run()
	q.Complete(tk)
	assert.True(t, q.IsDone())
	assert.Equal(t, 2, runs)

	q.Release(h)
	assert.EqualValues(t, 0, p.Outstanding(), "deallocation only after the non-respawning completion")
	q.Close()
}

func TestRespawnAfterParksOnNewPredecessor(t *testing.T) {
	q, p := newQueue(t)

	gate := q.Spawn(nil)
	tg, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, gate, tg)
	// gate is held "running"; don't complete it yet.

	runs := 0
	h := q.Spawn(func(self *task.Task) {
		runs++
		if runs == 1 {
			self.RespawnAfter(gate)
		}
	})

	tk, ok := q.Pop()
	require.True(t, ok)
	require.Same(t, h, tk)
	tk.Run()
	q.Complete(tk)

	// The respawned task is parked on gate, not ready.
	_, ok = q.Pop()
	require.False(t, ok)
	assert.False(t, q.IsDone(), "gate is still running")

	tg.Run()
	q.Complete(tg)

	// gate's completion wakes the respawned task.
	require.Equal(t, 1, drive(q))
	assert.Equal(t, 2, runs)

	q.Release(gate)
	q.Release(h)
	assert.EqualValues(t, 0, p.Outstanding())
	q.Close()
}

func TestWhenAllCompletesAfterLastPredecessor(t *testing.T) {
	q, p := newQueue(t)

	// Pop all three predecessors so their completion order is ours to
	// choose.
	p1 := q.Spawn(nil)
	p2 := q.Spawn(nil)
	p3 := q.Spawn(nil)
	popped := map[*task.Task]bool{}
	for i := 0; i < 3; i++ {
		tk, ok := q.Pop()
		require.True(t, ok)
		popped[tk] = true
	}
	require.True(t, popped[p1] && popped[p2] && popped[p3])

	agg := q.WhenAll(p1, p2, p3)
	joined := false
	after := q.SpawnAfter(agg, func(*task.Task) { joined = true })

	// The aggregate parks on the last slot first, so it is waiting on p3;
	// the other slots stay claimed until their turn in the scan.
	assert.False(t, agg.WaitQueueClosed())

	// Complete out of declaration order: p2, then p3, then p1.
	q.Complete(p2)
	_, ok := q.Pop()
	require.False(t, ok, "join must not fire while p3 and p1 are incomplete")
	assert.False(t, joined)
	assert.EqualValues(t, 2, p2.ReferenceCount(), "handle + unresolved slot: the slot's claim outlives p2's completion")

	q.Complete(p3)
	// Waking the aggregate resolved the p2 slot (already done) and parked
	// it on p1. Slot references are released as each slot resolves, not at
	// the end.
	_, ok = q.Pop()
	require.False(t, ok, "join must not fire while p1 is incomplete")
	assert.False(t, joined)
	assert.EqualValues(t, 1, p2.ReferenceCount(), "only the handle remains once p2's slot resolved")

	q.Complete(p1)
	// The final predecessor resolved every slot: the aggregate completed
	// and its own waiter became ready.
	assert.True(t, agg.WaitQueueClosed())
	require.Equal(t, 1, drive(q))
	assert.True(t, joined)

	for _, h := range []*task.Task{p1, p2, p3, agg, after} {
		q.Release(h)
	}
	assert.EqualValues(t, 0, p.Outstanding())
	q.Close()
}

func TestWhenAllOverCompletedPredecessorsFiresImmediately(t *testing.T) {
	q, p := newQueue(t)

	p1 := q.Spawn(nil)
	p2 := q.Spawn(nil)
	require.Equal(t, 2, drive(q))

	agg := q.WhenAll(p1, p2)
	// Every append failed during the construction scan, so the aggregate
	// completed synchronously inside WhenAll.
	assert.True(t, agg.WaitQueueClosed())
	assert.True(t, q.IsDone(), "aggregates are never counted as ready")

	q.Release(p1)
	q.Release(p2)
	q.Release(agg)
	assert.EqualValues(t, 0, p.Outstanding())
	q.Close()
}

func TestChainCompletesRecursively(t *testing.T) {
	q, p := newQueue(t)

	// a <- join(a) <- b: a runnable waiting on an aggregate waiting on a
	// runnable, to cover both dispatch arms of the wait-list drain.
	ran := false
	a := q.Spawn(nil)
	j := q.WhenAll(a)
	b := q.SpawnAfter(j, func(*task.Task) { ran = true })

	require.Equal(t, 2, drive(q))
	assert.True(t, ran)

	q.Release(a)
	q.Release(j)
	q.Release(b)
	assert.EqualValues(t, 0, p.Outstanding())
	q.Close()
}

func TestCloseWithLeakedTaskPanics(t *testing.T) {
	q, _ := newQueue(t)

	h := q.Spawn(nil)
	_ = h
	assert.Panics(t, func() { q.Close() }, "an active task at teardown is a programming error")
}

func TestReleaseIsNotDeallocationWhileActive(t *testing.T) {
	q, p := newQueue(t)

	h := q.Spawn(nil)
	// Fire-and-forget: dropping the handle early leaves the scheduling
	// lifecycle's reference in place until the task completes.
	q.Release(h)
	assert.EqualValues(t, 1, p.Outstanding())

	require.Equal(t, 1, drive(q))
	assert.EqualValues(t, 0, p.Outstanding())
	q.Close()
}

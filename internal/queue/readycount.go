package queue

import "sync/atomic"

// ReadyCount tracks how many runnable tasks are active, meaning pushed to a
// ready queue and not yet fully completed. While it is nonzero the graph must
// not be considered drained. It is the quiescence signal for whoever drives
// the queue.
type ReadyCount struct {
	n atomic.Int32
}

// Increment records one more active task. Called exactly once per runnable
// task each time it is pushed onto a ready queue (initial schedule or
// respawn).
func (c *ReadyCount) Increment() {
	c.n.Add(1)
}

// Decrement records that an execution concluded, whether the task finished
// or respawned. Paired one-to-one with every prior Increment.
func (c *ReadyCount) Decrement() {
	c.n.Add(-1)
}

// IsDone reports whether no runnable task is currently ready or running.
// The read is not linearized with other queue state; callers must only act
// on it at points where they know no task of their own is in flight.
func (c *ReadyCount) IsDone() bool {
	return c.n.Load() == 0
}

// AssertDrained panics if the count is nonzero. A nonzero count at teardown
// means a task was leaked or never completed, which is a programming error,
// not something to recover from.
func (c *ReadyCount) AssertDrained() {
	if n := c.n.Load(); n != 0 {
		panic("queue: ready count nonzero at teardown: leaked or never-completed task")
	}
}

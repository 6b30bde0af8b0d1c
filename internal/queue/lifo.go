package queue

import (
	"sync"

	"github.com/vk/taskgridgo/internal/task"
)

// LIFO is the default concrete ready queue: an intrusive last-in-first-out
// stack of runnable tasks. The completion protocol places no requirement on
// ready-queue ordering, so any policy could sit here; LIFO keeps hot tasks
// hot and needs no allocation, reusing the task's own link field.
//
// Pushes and pops share the intrusive link with node recycling, so the stack
// guards its head with a mutex rather than a bare CAS: a recycled node
// reappearing mid-pop would otherwise corrupt the chain (the ABA problem).
// The mutex covers two pointer writes and is uncontended in steady state.
type LIFO struct {
	mu   sync.Mutex
	head *task.Task
}

// Push makes t the next task to pop. t must be exclusively owned by the
// caller; ownership transfers to the queue.
func (q *LIFO) Push(t *task.Task) {
	q.mu.Lock()
	t.SetNext(q.head)
	q.head = t
	q.mu.Unlock()
}

// Pop removes and returns the most recently pushed task. ok is false when
// the queue is empty, which says nothing about quiescence on its own; pair
// it with the ready count's IsDone.
func (q *LIFO) Pop() (t *task.Task, ok bool) {
	q.mu.Lock()
	t = q.head
	if t != nil {
		q.head = t.Next()
		t.SetNext(nil)
		ok = true
	}
	q.mu.Unlock()
	return t, ok
}

// Empty reports whether the queue currently holds no tasks.
func (q *LIFO) Empty() bool {
	q.mu.Lock()
	empty := q.head == nil
	q.mu.Unlock()
	return empty
}

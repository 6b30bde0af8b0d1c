// Package pool provides the recycling allocator that task storage comes from
// and returns to. The queue's deallocation primitive hands nodes back here
// once their reference count reaches zero.
package pool

import (
	"sync"
	"sync/atomic"

	"github.com/vk/taskgridgo/internal/task"
)

// Pool recycles task nodes. It is safe for concurrent use.
type Pool struct {
	nodes sync.Pool

	// outstanding tracks nodes currently checked out. It returns to zero
	// after a fully drained run; tests use it as a leak check.
	outstanding atomic.Int64
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{
		nodes: sync.Pool{
			New: func() any { return new(task.Task) },
		},
	}
}

// GetRunnable returns an initialized runnable task with the given body.
func (p *Pool) GetRunnable(body task.Body) *task.Task {
	t := p.nodes.Get().(*task.Task)
	t.InitRunnable(body)
	p.outstanding.Add(1)
	return t
}

// GetAggregate returns an initialized when-all join over deps. Ownership of
// the slice transfers to the task.
func (p *Pool) GetAggregate(deps []*task.Task) *task.Task {
	t := p.nodes.Get().(*task.Task)
	t.InitAggregate(deps)
	p.outstanding.Add(1)
	return t
}

// Put resets t and returns its storage to the pool. Callers must only hand
// back nodes whose reference count has reached zero.
func (p *Pool) Put(t *task.Task) {
	t.Reset()
	p.outstanding.Add(-1)
	p.nodes.Put(t)
}

// Outstanding returns the number of nodes currently checked out.
func (p *Pool) Outstanding() int64 {
	return p.outstanding.Load()
}

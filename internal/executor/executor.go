// Package executor drives a task queue with a pool of worker goroutines:
// each worker pops a ready task, runs its body, and hands it back to the
// queue's completion path, until the graph drains to quiescence.
package executor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/internal/queue"
)

// idleSpins is how many times an empty-handed worker yields the processor
// before it starts sleeping between pop attempts.
const idleSpins = 32

// idleSleep is the nap between pop attempts once spinning stopped paying off.
const idleSleep = 100 * time.Microsecond

// Executor runs a task queue to quiescence with a fixed worker pool.
type Executor struct {
	queue   *queue.TaskQueue
	workers int
	wg      sync.WaitGroup
}

// New creates an executor over q. Worker counts below one are clamped to the
// number of usable CPUs.
func New(q *queue.TaskQueue, workers int) *Executor {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Executor{queue: q, workers: workers}
}

// Run starts the workers and blocks until the queue reports quiescence.
//
// The completion protocol has no notion of cancellation: a popped task always
// runs to completion and the graph always drains, otherwise the queue's
// teardown invariant would trip. Context expiry is therefore reported only
// after the drain, so callers can distinguish "finished" from "finished, but
// you had given up".
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker pool.", "workers", e.workers)

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx, i)
	}
	e.wg.Wait()

	logger.Debug("Worker pool drained.")
	return ctx.Err()
}

// worker is the processing loop for one goroutine. It exits only when a pop
// comes back empty at a moment the ready count reports quiescence: an empty
// ready queue alone proves nothing while another worker is still running a
// task that may push more work.
func (e *Executor) worker(ctx context.Context, id int) {
	defer e.wg.Done()
	logger := ctxlog.FromContext(ctx).With("workerID", id)
	logger.Debug("Worker started.")

	spins := 0
	for {
		t, ok := e.queue.Pop()
		if !ok {
			if e.queue.IsDone() {
				logger.Debug("Worker observed quiescence, exiting.")
				return
			}
			if spins < idleSpins {
				spins++
				runtime.Gosched()
			} else {
				time.Sleep(idleSleep)
			}
			continue
		}
		spins = 0

		logger.Debug("Worker picked up task.", "taskID", t.ID())
		t.Run()
		e.queue.Complete(t)
	}
}

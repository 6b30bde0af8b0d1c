package queue

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskgridgo/internal/task"
)

func newTestTask() *task.Task {
	tk := new(task.Task)
	tk.InitRunnable(nil)
	return tk
}

func TestLIFO_Ordering(t *testing.T) {
	var q LIFO
	assert.True(t, q.Empty())

	t1, t2, t3 := newTestTask(), newTestTask(), newTestTask()
	q.Push(t1)
	q.Push(t2)
	q.Push(t3)
	assert.False(t, q.Empty())

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Same(t, t3, got)

	got, ok = q.Pop()
	require.True(t, ok)
	assert.Same(t, t2, got)

	got, ok = q.Pop()
	require.True(t, ok)
	assert.Same(t, t1, got)

	_, ok = q.Pop()
	assert.False(t, ok)
	assert.True(t, q.Empty())
}

func TestLIFO_PopClearsLink(t *testing.T) {
	var q LIFO
	t1, t2 := newTestTask(), newTestTask()
	q.Push(t1)
	q.Push(t2)

	got, _ := q.Pop()
	assert.Nil(t, got.Next(), "a popped task must not leak its queue linkage")
}

func TestLIFO_ConcurrentPushPop(t *testing.T) {
	t.Parallel()

	var q LIFO
	const producers = 8
	const perProducer = 500

	var producerWG sync.WaitGroup
	producerWG.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer producerWG.Done()
			for j := 0; j < perProducer; j++ {
				q.Push(newTestTask())
			}
		}()
	}

	// Consumers race the producers; they stop once production is done and
	// the queue reads empty.
	var popped atomic.Int32
	var consumerWG sync.WaitGroup
	var producing atomic.Bool
	producing.Store(true)
	const consumers = 4
	consumerWG.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			defer consumerWG.Done()
			for {
				if _, ok := q.Pop(); ok {
					popped.Add(1)
					continue
				}
				if !producing.Load() {
					return
				}
				runtime.Gosched()
			}
		}()
	}

	producerWG.Wait()
	producing.Store(false)
	consumerWG.Wait()

	require.EqualValues(t, producers*perProducer, popped.Load(), "no pushed task may be lost")
}

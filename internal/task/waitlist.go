package task

// closedSentinel marks a wait list whose owner has completed. Appending past
// this point must fail so the appender schedules itself immediately instead.
// The sentinel is a distinguished address only; its fields are never touched.
var closedSentinel Task

// TryAddWaiting atomically appends w to t's wait list. It returns true if the
// append succeeded, meaning t has not completed yet and will schedule w when
// it does. It returns false if t has already completed and no longer accepts
// waiters; the caller must then treat w as immediately ready.
//
// The successful CAS is the publication point for everything the caller wrote
// to w beforehand (including the cleared predecessor slot): the completion
// path acquires it when it swaps the list closed.
func (t *Task) TryAddWaiting(w *Task) bool {
	for {
		head := t.waiters.Load()
		if head == &closedSentinel {
			return false
		}
		w.next = head
		if t.waiters.CompareAndSwap(head, w) {
			return true
		}
	}
}

// ConsumeWaitQueue closes the wait list and visits every parked task exactly
// once. After this call, TryAddWaiting on t fails forever, and a repeated
// consume visits nothing. Only the owner's completion path closes the list.
//
// The visitor typically re-enters the scheduler and may complete further
// tasks synchronously, so call depth grows with dependency-chain length.
// A visited task may be deallocated by the visitor; its link is read before
// the visit for that reason.
func (t *Task) ConsumeWaitQueue(visit func(w *Task)) {
	w := t.waiters.Swap(&closedSentinel)
	for w != nil && w != &closedSentinel {
		next := w.next
		w.next = nil
		visit(w)
		w = next
	}
}

// WaitQueueClosed reports whether the wait list has been closed by
// completion. Test hook.
func (t *Task) WaitQueueClosed() bool {
	return t.waiters.Load() == &closedSentinel
}

// Next and SetNext expose the intrusive link for whichever list currently
// owns the task. The ready queue uses them; the wait list uses the link
// directly.
func (t *Task) Next() *Task { return t.next }

// SetNext sets the intrusive link. See Next.
func (t *Task) SetNext(n *Task) { t.next = n }

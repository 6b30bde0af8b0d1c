// Package queue implements the completion and scheduling protocol of the
// runtime: the ready-count bookkeeping that detects quiescence, the state
// transition a task undergoes when it finishes or respawns, the resolution of
// a task's predecessor(s) against their wait lists, and the reference-count
// discipline that governs deallocation.
//
// The protocol lives in Engine, which is written once against the Backend
// interface and contains no storage of its own beyond the ready count.
// TaskQueue assembles an Engine with a concrete intrusive LIFO ready queue
// and a pool-backed deallocator, and adds the construction surface (Spawn,
// SpawnAfter, WhenAll) that drivers use to build graphs.
//
// # The race this package exists to win
//
// Multiple tasks may register themselves against a predecessor's completion
// at the same moment the predecessor is completing and draining its waiters.
// The wait list's closed sentinel makes the two outcomes exclusive: a waiter
// either appends successfully and is guaranteed to be drained later, or is
// told the owner already completed and schedules itself immediately. No
// interleaving loses a waiter or wakes it twice.
package queue

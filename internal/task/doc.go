// Package task defines the node type that flows through the runtime: a single
// reference-counted allocation that is either a runnable unit of work or an
// aggregate (when-all) join over several predecessors.
//
// A node is owned by exactly one structure at a time: a ready queue, one
// predecessor's wait list, or the scheduling operation currently moving it
// between states. Its plain fields (predecessor, respawn flag, aggregate
// dependence slots) are therefore mutated without atomics by whichever caller
// holds it. The two cross-goroutine contention points are the atomic reference
// count and the wait list, and both are lock-free.
package task

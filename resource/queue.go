package resource

import (
	"sync/atomic"

	"github.com/pinebranch/brrengine/status"
)

// drainBit marks sentry as draining; Enqueue treats it being set as a
// precondition violation (many producers may enqueue concurrently, but
// never concurrently with a drain).
const drainBit = int32(-1 << 31)

// CommandQueue is a lock-free single-drainer queue: any number of goroutines
// may Enqueue concurrently, and a single goroutine periodically Drains the
// accumulated commands in FIFO order. Grounded on lock_free_serializer.h's
// two-phase sentry: Enqueue bumps the sentry before writing, Drain flips a
// high bit and waits for the sentry to settle at zero before it's safe to
// read the buffer.
type CommandQueue[T any] struct {
	capacity uint32
	buffer   []T
	size     atomic.Uint32
	sentry   atomic.Int32
}

// NewCommandQueue returns a queue preallocated for capacity elements.
func NewCommandQueue[T any](capacity uint32) *CommandQueue[T] {
	return &CommandQueue[T]{capacity: capacity, buffer: make([]T, capacity)}
}

// Enqueue appends element to the queue. Panics if called concurrently with
// Drain (the drain bit set on sentry means a drain is in flight); returns an
// out-of-bounds Status, not a panic, when the queue is at capacity, since
// that's a condition callers are expected to check for and handle.
func (q *CommandQueue[T]) Enqueue(element T) status.Status {
	if q.sentry.Add(1)&drainBit != 0 {
		panic("resource: CommandQueue.Enqueue called concurrently with Drain")
	}
	defer q.sentry.Add(-1)

	index := q.size.Add(1) - 1
	if index >= q.capacity {
		return status.OutOfBoundsf("command queue capacity %d exceeded", q.capacity)
	}
	q.buffer[index] = element
	return status.Ok()
}

// Drain flips the queue into drain mode, waits for any in-flight Enqueue
// calls to finish, then calls f once per queued element in FIFO order before
// resetting the queue for reuse. Drain must only ever be called from one
// goroutine at a time.
func (q *CommandQueue[T]) Drain(f func(element T) status.Status) status.Status {
	for {
		old := q.sentry.Load()
		if q.sentry.CompareAndSwap(old, old|drainBit) {
			break
		}
	}
	for q.sentry.Load()&^drainBit != 0 {
		// Bounded by however long the longest in-flight Enqueue takes;
		// Enqueue's own critical section is a handful of instructions.
	}

	count := q.size.Load()
	if count > q.capacity {
		count = q.capacity
	}
	for i := uint32(0); i < count; i++ {
		if st := f(q.buffer[i]); !st.IsOK() {
			q.size.Store(0)
			q.sentry.Store(0)
			return st
		}
	}

	q.size.Store(0)
	q.sentry.Store(0)
	return status.Ok()
}

// Package dcctime provides the ISR-to-main-loop boundary: a fixed-capacity
// single-producer/single-consumer queue of edge-to-edge microsecond deltas,
// and the monotonic clock interface the rest of the pipeline is built on.
package dcctime

import "sync/atomic"

// EdgeQueueDepth is the size of the edge-delta ring. One slot stays free to
// tell a full ring from an empty one, so at most EdgeQueueDepth-1 deltas
// are buffered between the edge interrupt and the main-loop drain.
const EdgeQueueDepth = 128

// MonotonicClock returns a free-running microsecond counter, analogous to
// the hardware timer an interrupt handler would read. Implementations must
// be safe to call from the producer context.
type MonotonicClock interface {
	Micros() uint32
}

// EdgeQueue is a bounded ring buffer of edge deltas. Push is intended to be
// called from interrupt (producer) context; Pop from the main loop
// (consumer) context. The head/tail indices are atomics so the two sides
// never tear each other's view of queue occupancy, standing in for the
// "mask interrupts briefly" technique a real ISR/main-loop boundary uses.
type EdgeQueue struct {
	buf  [EdgeQueueDepth]uint32
	head atomic.Uint32 // next read index, advanced by consumer
	tail atomic.Uint32 // next write index, advanced by producer

	overflow atomic.Bool
}

// Push enqueues a delta. It returns false and sets the sticky overflow flag
// if the queue was full; the sample is dropped in that case.
func (q *EdgeQueue) Push(deltaUs uint32) bool {
	tail := q.tail.Load()
	next := (tail + 1) % EdgeQueueDepth
	if next == q.head.Load() {
		q.overflow.Store(true)
		return false
	}
	q.buf[tail] = deltaUs
	q.tail.Store(next)
	return true
}

// Pop dequeues the oldest delta. It returns false if the queue was empty.
func (q *EdgeQueue) Pop() (uint32, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return 0, false
	}
	v := q.buf[head]
	q.head.Store((head + 1) % EdgeQueueDepth)
	return v, true
}

// Overflow reports whether a sample has been dropped since the flag was
// last cleared.
func (q *EdgeQueue) Overflow() bool { return q.overflow.Load() }

// ClearOverflow resets the sticky overflow flag.
func (q *EdgeQueue) ClearOverflow() { q.overflow.Store(false) }

// EdgeCapture tracks the previous edge timestamp and turns successive
// MonotonicClock readings into deltas pushed onto an EdgeQueue. The first
// edge observed after construction or Reset is discarded, since there is no
// previous timestamp to difference against.
type EdgeCapture struct {
	Clock MonotonicClock
	Queue *EdgeQueue

	havePrev bool
	prev     uint32
}

// Reset forgets the previous edge timestamp, so the next OnEdge call is
// treated as the first edge after startup.
func (c *EdgeCapture) Reset() {
	c.havePrev = false
}

// OnEdge is called from the edge interrupt handler. It computes the delta
// since the previous edge (wrapping modulo 2^32) and pushes it to Queue.
func (c *EdgeCapture) OnEdge() {
	now := c.Clock.Micros()
	if !c.havePrev {
		c.prev = now
		c.havePrev = true
		return
	}
	delta := now - c.prev // wraps correctly via uint32 arithmetic
	c.prev = now
	c.Queue.Push(delta)
}

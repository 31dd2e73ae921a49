// Package packetfifo provides a bounded, fixed-capacity FIFO of decoded DCC
// packets shared between the packet extractor and the main-loop consumer,
// with an attached address/type filter and a sticky overflow flag.
package packetfifo

import "github.com/railyard/dccsignal/dccpacket"

// DefaultDepth is the default FIFO capacity.
const DefaultDepth = 10

// FIFO is a ring buffer of dccpacket.Packet values. It is not safe for
// concurrent producer/consumer use from more than one goroutine; in the
// target firmware both sides run from the same cooperative main loop.
type FIFO struct {
	buf      []dccpacket.Packet
	head     int // next read position
	tail     int // next write position
	count    int
	overflow bool

	filter dccpacket.Filter
}

// New creates a FIFO with the given capacity (DefaultDepth if depth <= 0).
func New(depth int) *FIFO {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &FIFO{buf: make([]dccpacket.Packet, depth)}
}

// SetFilter installs f as the active filter. A nil filter accepts every
// packet. The new filter takes effect starting with the next Push.
func (f *FIFO) SetFilter(filter dccpacket.Filter) {
	f.filter = filter
}

// Push attempts to enqueue p. It returns false, without affecting Overflow,
// if the filter rejected p; it returns false and sets the sticky overflow
// flag if the FIFO was full.
func (f *FIFO) Push(p dccpacket.Packet) bool {
	if f.filter != nil && !f.filter(p) {
		return false
	}
	if f.count == len(f.buf) {
		f.overflow = true
		return false
	}
	f.buf[f.tail] = p
	f.tail = (f.tail + 1) % len(f.buf)
	f.count++
	return true
}

// Empty reports whether the FIFO holds no packets.
func (f *FIFO) Empty() bool { return f.count == 0 }

// Size returns the number of packets currently queued.
func (f *FIFO) Size() int { return f.count }

// Front returns the oldest queued packet without removing it. Calling Front
// on an empty FIFO returns the zero Packet and false.
func (f *FIFO) Front() (dccpacket.Packet, bool) {
	if f.count == 0 {
		return dccpacket.Packet{}, false
	}
	return f.buf[f.head], true
}

// Pop removes and returns the oldest queued packet. Calling Pop on an empty
// FIFO returns the zero Packet and false.
func (f *FIFO) Pop() (dccpacket.Packet, bool) {
	p, ok := f.Front()
	if !ok {
		return p, false
	}
	f.head = (f.head + 1) % len(f.buf)
	f.count--
	return p, true
}

// Overflow reports whether a packet has been dropped due to the FIFO being
// full since the flag was last cleared.
func (f *FIFO) Overflow() bool { return f.overflow }

// ClearOverflow resets the sticky overflow flag.
func (f *FIFO) ClearOverflow() { f.overflow = false }

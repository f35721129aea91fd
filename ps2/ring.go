package ps2

import "sync/atomic"

// Ring is a fixed-size single-producer single-consumer byte queue. The write
// cursor is only advanced by Put and the read cursor only by Get, so one
// producer and one consumer need no lock. Cursors run freely and are masked on
// access; their difference is the occupancy.
//
// A full ring drops the incoming byte and counts an overrun. Overwriting the
// oldest entry instead would require the producer to move the consumer's
// cursor.
type Ring struct {
	buf      []byte
	mask     uint32
	head     atomic.Uint32 // write cursor
	tail     atomic.Uint32 // read cursor
	overruns atomic.Uint32
}

// NewRing returns a ring holding capacity bytes. capacity must be a power of two.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, ErrCapacity
	}
	return &Ring{
		buf:  make([]byte, capacity),
		mask: uint32(capacity - 1),
	}, nil
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Used returns the number of unread bytes.
func (r *Ring) Used() int {
	return int(r.head.Load() - r.tail.Load())
}

// Put appends b. It returns false and counts an overrun if the ring is full.
func (r *Ring) Put(b byte) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= uint32(len(r.buf)) {
		r.overruns.Add(1)
		return false
	}
	r.buf[head&r.mask] = b
	r.head.Store(head + 1)
	return true
}

// Get removes the oldest byte.
func (r *Ring) Get() (byte, bool) {
	tail := r.tail.Load()
	if r.head.Load() == tail {
		return 0, false
	}
	b := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return b, true
}

// Overruns returns the number of bytes dropped on a full ring.
func (r *Ring) Overruns() uint32 {
	return r.overruns.Load()
}

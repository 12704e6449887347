// Package ring provides a lock-free single-producer/single-consumer
// ring buffer for moving samples from a real-time callback into the
// cooperative task system without blocking or allocating.
package ring

import "sync/atomic"

// buffer is the shared SPSC storage. Indices grow monotonically and are
// masked on access, so the full capacity is usable and wrap-around never
// reads an unpublished slot. The producer's write is published with a
// release store and observed by the consumer's acquire load; Go's
// sync/atomic guarantees at least that ordering.
type buffer[T any] struct {
	slots []T
	mask  uint64
	write atomic.Uint64
	read  atomic.Uint64
}

// Sender is the producer handle. It is safe for exactly one goroutine
// (typically an OS audio callback) and never blocks, allocates, or
// takes a lock.
type Sender[T any] struct {
	b *buffer[T]
}

// Receiver is the consumer handle. It is safe for exactly one goroutine
// and never blocks.
type Receiver[T any] struct {
	b *buffer[T]
}

// Channel creates an SPSC ring buffer and returns its two handles.
// Capacity must be a power of two greater than one; anything else is a
// programmer error and panics.
func Channel[T any](capacity int) (*Sender[T], *Receiver[T]) {
	if capacity <= 1 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two > 1")
	}
	b := &buffer[T]{
		slots: make([]T, capacity),
		mask:  uint64(capacity - 1),
	}
	return &Sender[T]{b: b}, &Receiver[T]{b: b}
}

// TrySend offers an item to the buffer. It returns false when the
// buffer is full; the item is dropped, favoring continuity of the
// real-time side over completeness.
func (s *Sender[T]) TrySend(item T) bool {
	b := s.b
	w := b.write.Load()
	r := b.read.Load()
	if w-r == uint64(len(b.slots)) {
		return false
	}
	b.slots[w&b.mask] = item
	b.write.Store(w + 1)
	return true
}

// Len reports the approximate number of buffered items.
func (s *Sender[T]) Len() int { return s.b.len() }

// IsFull reports whether the buffer is full. The answer may be stale by
// the time it is used.
func (s *Sender[T]) IsFull() bool { return s.b.len() == len(s.b.slots) }

// Cap returns the buffer capacity.
func (s *Sender[T]) Cap() int { return len(s.b.slots) }

// TryRecv returns the next item without blocking. The second return is
// false when the buffer is empty.
func (r *Receiver[T]) TryRecv() (T, bool) {
	b := r.b
	var zero T
	rd := b.read.Load()
	w := b.write.Load()
	if rd == w {
		return zero, false
	}
	item := b.slots[rd&b.mask]
	b.slots[rd&b.mask] = zero
	b.read.Store(rd + 1)
	return item, true
}

// Len reports the approximate number of buffered items.
func (r *Receiver[T]) Len() int { return r.b.len() }

// IsEmpty reports whether the buffer is empty. The answer may be stale
// by the time it is used.
func (r *Receiver[T]) IsEmpty() bool { return r.b.len() == 0 }

// Cap returns the buffer capacity.
func (r *Receiver[T]) Cap() int { return len(r.b.slots) }

func (b *buffer[T]) len() int {
	w := b.write.Load()
	r := b.read.Load()
	return int(w - r)
}

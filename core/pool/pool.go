// Package pool provides generation-checked slot allocators. A handle
// embeds the slot index and the generation at allocation time; lookups
// fail once the slot has been released, so stale handles are detected
// instead of reading recycled memory. The same pattern serves shared
// sample/byte buffers and GPU resource maps.
package pool

import "sync"

// Handle references a pooled value. It is valid only while its
// generation equals the generation currently stored at the slot.
type Handle struct {
	Index      uint32
	Generation uint32
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Pool is a generic slot allocator with generation-checked handles.
// Lookups take a read lock and may proceed concurrently; allocate and
// release are exclusive.
type Pool[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
}

// New creates an empty pool.
func New[T any]() *Pool[T] {
	return &Pool[T]{}
}

// Allocate stores a value and returns its handle.
func (p *Pool[T]) Allocate(value T) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		s := &p.slots[idx]
		s.value = value
		s.occupied = true
		return Handle{Index: idx, Generation: s.generation}
	}

	p.slots = append(p.slots, slot[T]{value: value, occupied: true})
	return Handle{Index: uint32(len(p.slots) - 1)}
}

// Get returns the value for a handle. The second return is false when
// the handle is stale, released, or from another pool.
func (p *Pool[T]) Get(h Handle) (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var zero T
	if int(h.Index) >= len(p.slots) {
		return zero, false
	}
	s := &p.slots[h.Index]
	if !s.occupied || s.generation != h.Generation {
		return zero, false
	}
	return s.value, true
}

// GetWith runs fn against the value while holding the read lock,
// avoiding a copy for values that must not be duplicated (GPU handles).
// It returns false without calling fn when the handle is invalid.
func (p *Pool[T]) GetWith(h Handle, fn func(*T)) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if int(h.Index) >= len(p.slots) {
		return false
	}
	s := &p.slots[h.Index]
	if !s.occupied || s.generation != h.Generation {
		return false
	}
	fn(&s.value)
	return true
}

// Release frees the slot for reuse. The slot generation is incremented
// eagerly so every outstanding handle to it fails from this point on;
// that increment is the entire safety argument for the handle design.
// Releasing with a stale handle is a no-op and returns false.
func (p *Pool[T]) Release(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(h.Index) >= len(p.slots) {
		return false
	}
	s := &p.slots[h.Index]
	if !s.occupied || s.generation != h.Generation {
		return false
	}
	var zero T
	s.value = zero
	s.occupied = false
	s.generation++
	p.free = append(p.free, h.Index)
	return true
}

// Len reports the number of occupied slots.
func (p *Pool[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.slots) - len(p.free)
}

// Pools used by the host for shared buffers and GPU resources.
type (
	// AudioPool holds shared sample buffers referenced by AudioRef
	// signals.
	AudioPool = Pool[[]float32]
	// BlobPool holds shared byte buffers referenced by BlobRef
	// signals.
	BlobPool = Pool[[]byte]
	// TextureMap maps opaque texture ids to platform handles owned by
	// the compositor.
	TextureMap = Pool[uintptr]
)

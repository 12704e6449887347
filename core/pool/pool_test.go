package pool

import (
	"sync"
	"testing"
)

func TestAllocateGet(t *testing.T) {
	p := New[[]byte]()

	h := p.Allocate([]byte("hello"))
	got, ok := p.Get(h)
	if !ok {
		t.Fatal("Get(fresh handle) = not ok, want ok")
	}
	if string(got) != "hello" {
		t.Errorf("Get() = %q, want %q", got, "hello")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestReleaseInvalidatesHandle(t *testing.T) {
	p := New[int]()

	h := p.Allocate(42)
	if !p.Release(h) {
		t.Fatal("Release(fresh handle) = false, want true")
	}
	if _, ok := p.Get(h); ok {
		t.Error("Get(released handle) = ok, want not ok")
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func TestGenerationIncrementsOnReuse(t *testing.T) {
	p := New[string]()

	h1 := p.Allocate("first")
	p.Release(h1)

	// The slot is recycled; the old handle must keep failing.
	h2 := p.Allocate("second")
	if h2.Index != h1.Index {
		t.Fatalf("slot not reused: h2.Index = %d, want %d", h2.Index, h1.Index)
	}
	if h2.Generation == h1.Generation {
		t.Fatalf("generation not incremented on reuse: both %d", h1.Generation)
	}

	if _, ok := p.Get(h1); ok {
		t.Error("Get(stale handle) = ok, want not ok")
	}
	got, ok := p.Get(h2)
	if !ok || got != "second" {
		t.Errorf("Get(h2) = (%q, %v), want (%q, true)", got, ok, "second")
	}
}

func TestStaleReleaseIsNoOp(t *testing.T) {
	p := New[string]()

	h1 := p.Allocate("first")
	p.Release(h1)
	h2 := p.Allocate("second")

	if p.Release(h1) {
		t.Error("Release(stale handle) = true, want false")
	}
	if _, ok := p.Get(h2); !ok {
		t.Error("stale release destroyed a live slot")
	}
}

func TestForeignHandle(t *testing.T) {
	p := New[int]()
	if _, ok := p.Get(Handle{Index: 7, Generation: 0}); ok {
		t.Error("Get(foreign handle) = ok, want not ok")
	}
	if p.Release(Handle{Index: 7}) {
		t.Error("Release(foreign handle) = true, want false")
	}
}

func TestGetWith(t *testing.T) {
	p := New[[]float32]()

	h := p.Allocate([]float32{1, 2, 3})
	var sum float32
	ok := p.GetWith(h, func(v *[]float32) {
		for _, f := range *v {
			sum += f
		}
	})
	if !ok || sum != 6 {
		t.Errorf("GetWith() = %v, sum = %v, want true, 6", ok, sum)
	}

	p.Release(h)
	called := false
	if p.GetWith(h, func(*[]float32) { called = true }) {
		t.Error("GetWith(stale) = true, want false")
	}
	if called {
		t.Error("GetWith(stale) invoked fn")
	}
}

func TestConcurrentReaders(t *testing.T) {
	p := New[int]()
	handles := make([]Handle, 100)
	for i := range handles {
		handles[i] = p.Allocate(i)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, h := range handles {
				if v, ok := p.Get(h); !ok || v != i {
					t.Errorf("Get(handles[%d]) = (%d, %v), want (%d, true)", i, v, ok, i)
					return
				}
			}
		}()
	}
	wg.Wait()
}

package plugin

import (
	"sync"

	"github.com/ebitengine/purego"

	"github.com/artpar/patchbay/core/abi"
)

// cAllocator fulfils abi.Allocator with the process C allocator, so
// payload ownership can transfer across the plugin boundary in either
// direction.
type cAllocator struct {
	malloc uintptr
	free   uintptr
}

func (c *cAllocator) Alloc(n int) uintptr {
	if n <= 0 {
		return 0
	}
	r1, _, _ := purego.SyscallN(c.malloc, uintptr(n))
	return r1
}

func (c *cAllocator) Free(p uintptr) {
	if p == 0 {
		return
	}
	purego.SyscallN(c.free, p)
}

var (
	allocOnce sync.Once
	allocator *cAllocator
	allocErr  error
)

// processAllocator returns the shared C allocator, resolving the
// malloc/free symbols on first use.
func processAllocator() (abi.Allocator, error) {
	allocOnce.Do(func() {
		malloc, free, err := resolveAllocator()
		if err != nil {
			allocErr = err
			return
		}
		allocator = &cAllocator{malloc: malloc, free: free}
	})
	if allocErr != nil {
		return nil, allocErr
	}
	return allocator, nil
}

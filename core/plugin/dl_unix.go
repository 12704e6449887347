//go:build darwin || freebsd || linux

package plugin

import (
	"fmt"

	"github.com/ebitengine/purego"
)

func dlOpen(path string) (uintptr, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return 0, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return h, nil
}

func dlSym(handle uintptr, name string) (uintptr, error) {
	p, err := purego.Dlsym(handle, name)
	if err != nil {
		return 0, fmt.Errorf("dlsym %s: %w", name, err)
	}
	return p, nil
}

func dlClose(handle uintptr) error {
	return purego.Dlclose(handle)
}

// resolveAllocator binds the process C allocator. Payloads created by
// either side of the plugin boundary are released through this pair.
func resolveAllocator() (malloc, free uintptr, err error) {
	malloc, err = purego.Dlsym(purego.RTLD_DEFAULT, "malloc")
	if err != nil {
		return 0, 0, fmt.Errorf("resolve malloc: %w", err)
	}
	free, err = purego.Dlsym(purego.RTLD_DEFAULT, "free")
	if err != nil {
		return 0, 0, fmt.Errorf("resolve free: %w", err)
	}
	return malloc, free, nil
}

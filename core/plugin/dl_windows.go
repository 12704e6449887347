//go:build windows

package plugin

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func dlOpen(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, fmt.Errorf("LoadLibrary %s: %w", path, err)
	}
	return uintptr(h), nil
}

func dlSym(handle uintptr, name string) (uintptr, error) {
	p, err := windows.GetProcAddress(windows.Handle(handle), name)
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress %s: %w", name, err)
	}
	return p, nil
}

func dlClose(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

// resolveAllocator binds the C runtime allocator. Plugins built against
// the same CRT release payloads with the matching free.
func resolveAllocator() (malloc, free uintptr, err error) {
	crt, err := windows.LoadLibrary("msvcrt.dll")
	if err != nil {
		return 0, 0, fmt.Errorf("load msvcrt: %w", err)
	}
	malloc, err = windows.GetProcAddress(crt, "malloc")
	if err != nil {
		return 0, 0, fmt.Errorf("resolve malloc: %w", err)
	}
	free, err = windows.GetProcAddress(crt, "free")
	if err != nil {
		return 0, 0, fmt.Errorf("resolve free: %w", err)
	}
	return malloc, free, nil
}

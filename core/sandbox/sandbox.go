// Package sandbox restricts the process to a fixed syscall allow-list
// before untrusted plugin code runs. Filtering is platform-specific;
// the strategy is selected once at startup and platforms without
// syscall filtering get an explicit no-op.
package sandbox

import "github.com/rs/zerolog"

// Strategy is a capability-checked hardening layer.
type Strategy interface {
	// Name identifies the strategy for logs and diagnostics.
	Name() string
	// Available reports whether this platform can enforce the policy.
	Available() bool
	// Apply installs the syscall filter on the calling process. After
	// a successful Apply, syscalls outside the allow-list fail with a
	// permission error enforced by the kernel.
	Apply() error
}

// New selects the strategy for the running platform.
func New(logger zerolog.Logger) Strategy {
	return platformStrategy(logger)
}

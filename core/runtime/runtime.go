// Package runtime provides the uniform scheduling contract every
// module is adapted to, and the host that spawns and supervises module
// loops. Collapsing the three capability shapes into one contract lets
// the host treat every module identically for scheduling, enabling and
// shutdown, while module authors write only the narrow interface
// relevant to their role.
package runtime

import (
	"context"

	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

// ExecutionModel hints how the module's loop should be scheduled.
type ExecutionModel string

const (
	// ExecutionAsync runs the loop on the shared cooperative
	// scheduler. Suitable for lightweight, channel-bound work.
	ExecutionAsync ExecutionModel = "async"
	// ExecutionDedicated pins the loop to its own OS thread. For
	// modules doing heavy or blocking work.
	ExecutionDedicated ExecutionModel = "dedicated"
)

// Priority orders modules for scheduling decisions.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityRealTime
)

// RoutedSignal is the envelope for router-bound signals, carrying the
// emitting module's id for downstream routing decisions.
type RoutedSignal struct {
	SourceID string
	Signal   signal.Signal
}

// ModuleRuntime is the contract the host schedules against.
//
// Run drives the module's main loop until ctx is cancelled or its
// channels close: a closed inbox means the upstream is gone, ctx
// cancellation stands in for a closed outbox (downstream gone). Both
// are graceful shutdown, not errors. IsEnabled and SetEnabled may be
// called concurrently with Run.
type ModuleRuntime interface {
	// ID is the stable unique identifier used when routing.
	ID() string

	// Name is the human-readable module name.
	Name() string

	// Schema describes ports and capabilities.
	Schema() module.Schema

	// ExecutionModel is the module's scheduling preference.
	ExecutionModel() ExecutionModel

	// Priority is the module's scheduling priority.
	Priority() Priority

	// IsEnabled reports whether the module is currently enabled.
	IsEnabled() bool

	// SetEnabled enables or disables the module without stopping its
	// loop.
	SetEnabled(enabled bool)

	// Run executes the module loop.
	Run(ctx context.Context, inbox <-chan signal.Signal, outbox chan<- RoutedSignal)
}

// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/ and modules/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Metrics receives host runtime counters. Implementations must be safe
// for concurrent use; a no-op implementation lives in adapters/metrics.
type Metrics interface {
	// SignalRouted counts a signal forwarded from a module outbox.
	SignalRouted(sourceID, kind string)
	// SignalDropped counts a signal discarded before delivery.
	SignalDropped(sourceID, reason string)
	// PluginLoad counts a plugin load attempt by result.
	PluginLoad(result string)
	// ModulesRunning reports the number of spawned modules.
	ModulesRunning(n int)
	// ConfigReload counts a configuration reload by result.
	ConfigReload(result string)
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// RegistryStore persists plugin records and operator decisions so they
// survive restarts.
type RegistryStore interface {
	// Upsert inserts or replaces the record keyed by Path.
	Upsert(ctx context.Context, rec module.PluginRecord) error

	// Get retrieves a record by plugin path.
	Get(ctx context.Context, path string) (module.PluginRecord, error)

	// List returns all records ordered by path.
	List(ctx context.Context) ([]module.PluginRecord, error)

	// SetEnabled flips the operator enable flag for a plugin.
	SetEnabled(ctx context.Context, path string, enabled bool) error

	// Delete removes a record.
	Delete(ctx context.Context, path string) error
}

// -----------------------------------------------------------------------------
// Module Capability Ports
// -----------------------------------------------------------------------------
// Any collaborator (UI tiles, ephemeris math, DSP, STT) implements one
// of these three shapes and is wrapped by the runtime adapters.

// Source emits signals into the patch bay. It never receives input.
type Source interface {
	// Name is the human-readable module name.
	Name() string

	// Schema describes the module's ports and capabilities.
	Schema() module.Schema

	// IsEnabled reports whether the module is currently enabled.
	IsEnabled() bool

	// SetEnabled enables or disables the module.
	SetEnabled(enabled bool)

	// Poll blocks until the next signal is available. The second
	// return is false when the source is exhausted or ctx is done;
	// the adapter then shuts the module down.
	Poll(ctx context.Context) (signal.Signal, bool)
}

// Sink consumes signals from the patch bay. It never emits output.
type Sink interface {
	Name() string
	Schema() module.Schema
	IsEnabled() bool
	SetEnabled(enabled bool)

	// Consume handles one signal. Errors are logged by the adapter
	// and never fatal.
	Consume(ctx context.Context, s signal.Signal) error
}

// Processor transforms signals in flight (middleware).
type Processor interface {
	Name() string
	Schema() module.Schema
	IsEnabled() bool
	SetEnabled(enabled bool)

	// Process handles one signal. When emit is true, out is forwarded
	// downstream; emit false with a nil error means "processed,
	// nothing to emit". Errors are logged by the adapter and never
	// fatal.
	Process(ctx context.Context, s signal.Signal) (out signal.Signal, emit bool, err error)
}

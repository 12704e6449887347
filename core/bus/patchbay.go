// Package bus routes signals between running modules along declared
// patches, the way a hardware patch bay connects jacks with cables.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/core/runtime"
	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

// PatchBay owns the patch table and the routing loop. Signals drain
// from the host router and fan out to every sink patched to the
// emitting module. Per-producer FIFO order is preserved because a
// single loop drains the router; cross-producer interleaving is
// whatever the router channel yields.
type PatchBay struct {
	mu      sync.RWMutex
	patches map[string]module.Patch

	host   *runtime.Host
	logger zerolog.Logger
}

// New creates an empty patch bay over a host.
func New(host *runtime.Host, logger zerolog.Logger) *PatchBay {
	return &PatchBay{
		patches: make(map[string]module.Patch),
		host:    host,
		logger:  logger,
	}
}

// AddPatch connects a source module port to a sink module port after
// validating that both modules are running, the ports exist with the
// right directions, and the port data types are compatible. Modules
// that publish no ports (schema-less plugins) skip the port checks.
func (pb *PatchBay) AddPatch(sourceModule, sourcePort, sinkModule, sinkPort string) (module.Patch, error) {
	srcSchema, ok := pb.host.Schema(sourceModule)
	if !ok {
		return module.Patch{}, fmt.Errorf("source module %s not running", sourceModule)
	}
	sinkSchema, ok := pb.host.Schema(sinkModule)
	if !ok {
		return module.Patch{}, fmt.Errorf("sink module %s not running", sinkModule)
	}

	srcType := signal.TypeAny
	if len(srcSchema.Ports) > 0 {
		port, ok := srcSchema.Port(sourcePort)
		if !ok {
			return module.Patch{}, fmt.Errorf("module %s has no port %s", sourceModule, sourcePort)
		}
		if port.Direction != signal.DirectionOutput {
			return module.Patch{}, fmt.Errorf("port %s.%s is not an output", sourceModule, sourcePort)
		}
		srcType = port.DataType
	}
	if len(sinkSchema.Ports) > 0 {
		port, ok := sinkSchema.Port(sinkPort)
		if !ok {
			return module.Patch{}, fmt.Errorf("module %s has no port %s", sinkModule, sinkPort)
		}
		if port.Direction != signal.DirectionInput {
			return module.Patch{}, fmt.Errorf("port %s.%s is not an input", sinkModule, sinkPort)
		}
		if !module.Compatible(srcType, port.DataType) {
			return module.Patch{}, fmt.Errorf("incompatible patch: %s carries %s, %s expects %s",
				sourcePort, srcType, sinkPort, port.DataType)
		}
	}

	p := module.Patch{
		ID:           uuid.NewString(),
		SourceModule: sourceModule,
		SourcePort:   sourcePort,
		SinkModule:   sinkModule,
		SinkPort:     sinkPort,
	}
	pb.mu.Lock()
	pb.patches[p.ID] = p
	pb.mu.Unlock()
	pb.logger.Info().
		Str("patch", p.ID).
		Str("from", sourceModule+"."+sourcePort).
		Str("to", sinkModule+"."+sinkPort).
		Msg("patch connected")
	return p, nil
}

// RemovePatch disconnects a patch by id.
func (pb *PatchBay) RemovePatch(id string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if _, ok := pb.patches[id]; !ok {
		return fmt.Errorf("patch %s not found", id)
	}
	delete(pb.patches, id)
	return nil
}

// List returns a snapshot of all patches.
func (pb *PatchBay) List() []module.Patch {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	out := make([]module.Patch, 0, len(pb.patches))
	for _, p := range pb.patches {
		out = append(out, p)
	}
	return out
}

// Run drains the host router and fans each signal out along matching
// patches until the context is cancelled. Delivery to a full inbox
// drops that signal for that sink only; other patches still receive
// it.
func (pb *PatchBay) Run(ctx context.Context) {
	for {
		select {
		case rs, ok := <-pb.host.Router():
			if !ok {
				return
			}
			pb.route(rs)
		case <-ctx.Done():
			return
		}
	}
}

func (pb *PatchBay) route(rs runtime.RoutedSignal) {
	pb.mu.RLock()
	var sinks []string
	for _, p := range pb.patches {
		if p.SourceModule == rs.SourceID {
			sinks = append(sinks, p.SinkModule)
		}
	}
	pb.mu.RUnlock()

	for i, sink := range sinks {
		s := rs.Signal
		if i > 0 {
			// Later sinks get detached copies so consumers never alias
			// payload memory. A stream hand-off has exactly one consumer
			// and only reaches the first sink.
			var ok bool
			if s, ok = signal.Clone(s); !ok {
				pb.logger.Warn().
					Str("from", rs.SourceID).
					Str("to", sink).
					Msg("single-consumer signal not fanned out")
				continue
			}
		}
		if err := pb.host.Send(sink, s); err != nil {
			pb.logger.Debug().Err(err).
				Str("from", rs.SourceID).
				Str("to", sink).
				Msg("signal dropped")
		}
	}
}

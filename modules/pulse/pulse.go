// Package pulse provides a built-in source that emits a clock pulse at
// a fixed interval. It doubles as the reference implementation of the
// Source capability shape.
package pulse

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

// Source emits signal.Pulse every interval. A Limit of zero means
// unbounded; otherwise the source exhausts itself after Limit pulses
// and its adapter shuts the module down.
type Source struct {
	id       string
	interval time.Duration
	limit    uint64

	emitted uint64
	enabled atomic.Bool
}

// New creates a pulse source. id must be unique among running modules.
func New(id string, interval time.Duration, limit uint64) *Source {
	s := &Source{id: id, interval: interval, limit: limit}
	s.enabled.Store(true)
	return s
}

func (s *Source) Name() string { return "pulse" }

func (s *Source) Schema() module.Schema {
	return module.Schema{
		ID:          s.id,
		Name:        "pulse",
		Description: "emits a clock pulse at a fixed interval",
		Ports: []module.Port{
			{ID: "out", Label: "Pulse", DataType: signal.TypeControl, Direction: signal.DirectionOutput},
		},
	}
}

func (s *Source) IsEnabled() bool         { return s.enabled.Load() }
func (s *Source) SetEnabled(enabled bool) { s.enabled.Store(enabled) }

// Poll sleeps one interval and emits. Pulses are skipped, not queued,
// while the source is disabled.
func (s *Source) Poll(ctx context.Context) (signal.Signal, bool) {
	for {
		if s.limit > 0 && s.emitted >= s.limit {
			return nil, false
		}
		select {
		case <-time.After(s.interval):
			if !s.enabled.Load() {
				continue
			}
			s.emitted++
			return signal.Pulse{}, true
		case <-ctx.Done():
			return nil, false
		}
	}
}

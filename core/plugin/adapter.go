package plugin

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	modruntime "github.com/artpar/patchbay/core/runtime"
	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

// pollInterval is how often an idle plugin is polled for pending
// output. Inbox traffic is handled as it arrives regardless.
const pollInterval = 10 * time.Millisecond

// Module adapts a loaded Library to the host scheduling contract.
// Plugins are both pollable and consumable: the run loop interleaves
// draining the inbox with periodic output polls. Native code may block
// arbitrarily, so plugin modules always request a dedicated thread.
type Module struct {
	lib    *Library
	id     string
	schema module.Schema
	logger zerolog.Logger
}

// NewModule wraps a loaded library. The id and schema are captured
// once at wrap time; a plugin without an exported schema gets one
// synthesized from its manifest.
func NewModule(lib *Library, logger zerolog.Logger) *Module {
	id := lib.ID()
	schema, ok := lib.Schema()
	if !ok {
		schema = module.Schema{
			ID:          id,
			Name:        lib.Manifest().Name,
			Description: lib.Manifest().Description,
		}
	}
	if schema.ID == "" {
		schema.ID = id
	}
	if id == "" {
		id = schema.ID
	}
	return &Module{lib: lib, id: id, schema: schema, logger: logger}
}

// Library exposes the underlying loaded library, for lifecycle
// management by the owner.
func (m *Module) Library() *Library { return m.lib }

func (m *Module) ID() string                                { return m.id }
func (m *Module) Name() string                              { return m.lib.Name() }
func (m *Module) Schema() module.Schema                     { return m.schema }
func (m *Module) ExecutionModel() modruntime.ExecutionModel { return modruntime.ExecutionDedicated }
func (m *Module) Priority() modruntime.Priority             { return modruntime.PriorityNormal }
func (m *Module) IsEnabled() bool                           { return m.lib.IsEnabled() }
func (m *Module) SetEnabled(enabled bool)                   { m.lib.SetEnabled(enabled) }

// Run drives the plugin until the inbox closes or the context is
// cancelled, then destroys the instance and unloads the library.
func (m *Module) Run(ctx context.Context, inbox <-chan signal.Signal, outbox chan<- modruntime.RoutedSignal) {
	defer func() {
		if err := m.lib.Close(); err != nil {
			m.logger.Error().Err(err).Str("module", m.id).Msg("plugin unload failed")
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case s, ok := <-inbox:
			if !ok {
				return
			}
			if !m.lib.IsEnabled() {
				continue
			}
			out, emitted, err := m.lib.Consume(s)
			if err != nil {
				if errors.Is(err, ErrNotEncodable) {
					m.logger.Debug().Str("module", m.id).Str("kind", signal.Kind(s)).Msg("dropping in-process signal at plugin boundary")
				} else {
					m.logger.Error().Err(err).Str("module", m.id).Msg("plugin consume failed")
				}
				continue
			}
			if emitted && !m.forward(ctx, out, outbox) {
				return
			}
		case <-ticker.C:
			if !m.lib.IsEnabled() {
				continue
			}
			for {
				s, ok := m.lib.Poll()
				if !ok {
					break
				}
				if !m.forward(ctx, s, outbox) {
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Module) forward(ctx context.Context, s signal.Signal, outbox chan<- modruntime.RoutedSignal) bool {
	select {
	case outbox <- modruntime.RoutedSignal{SourceID: m.id, Signal: s}:
		return true
	case <-ctx.Done():
		return false
	}
}

package runtime

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
	"github.com/artpar/patchbay/ports"
)

// SourceAdapter runs a Source as a ModuleRuntime.
type SourceAdapter struct {
	source ports.Source
	schema module.Schema
	logger zerolog.Logger
}

// NewSource wraps a source. The schema is captured once; its ID is the
// routing id.
func NewSource(src ports.Source, logger zerolog.Logger) *SourceAdapter {
	return &SourceAdapter{source: src, schema: src.Schema(), logger: logger}
}

func (a *SourceAdapter) ID() string                     { return a.schema.ID }
func (a *SourceAdapter) Name() string                   { return a.source.Name() }
func (a *SourceAdapter) Schema() module.Schema          { return a.schema }
func (a *SourceAdapter) ExecutionModel() ExecutionModel { return ExecutionAsync }
func (a *SourceAdapter) Priority() Priority             { return PriorityNormal }
func (a *SourceAdapter) IsEnabled() bool                { return a.source.IsEnabled() }
func (a *SourceAdapter) SetEnabled(enabled bool)        { a.source.SetEnabled(enabled) }

// Run polls the source and forwards each signal with provenance.
// Sources never read their inbox. The loop ends when Poll reports
// end-of-stream or the downstream is gone.
func (a *SourceAdapter) Run(ctx context.Context, _ <-chan signal.Signal, outbox chan<- RoutedSignal) {
	for {
		s, ok := a.source.Poll(ctx)
		if !ok {
			a.logger.Info().Str("module", a.ID()).Msg("source exhausted, shutting down")
			return
		}
		select {
		case outbox <- RoutedSignal{SourceID: a.ID(), Signal: s}:
		case <-ctx.Done():
			a.logger.Warn().Str("module", a.ID()).Msg("source outbox gone, shutting down")
			return
		}
	}
}

// SinkAdapter runs a Sink as a ModuleRuntime.
type SinkAdapter struct {
	sink   ports.Sink
	schema module.Schema
	logger zerolog.Logger
}

// NewSink wraps a sink.
func NewSink(sink ports.Sink, logger zerolog.Logger) *SinkAdapter {
	return &SinkAdapter{sink: sink, schema: sink.Schema(), logger: logger}
}

func (a *SinkAdapter) ID() string                     { return a.schema.ID }
func (a *SinkAdapter) Name() string                   { return a.sink.Name() }
func (a *SinkAdapter) Schema() module.Schema          { return a.schema }
func (a *SinkAdapter) ExecutionModel() ExecutionModel { return ExecutionAsync }
func (a *SinkAdapter) Priority() Priority             { return PriorityNormal }
func (a *SinkAdapter) IsEnabled() bool                { return a.sink.IsEnabled() }
func (a *SinkAdapter) SetEnabled(enabled bool)        { a.sink.SetEnabled(enabled) }

// Run drains the inbox until it closes. Signals arriving while the
// sink is disabled are dropped, not buffered, so the channel never
// backs up. Consumption errors are logged and never fatal.
func (a *SinkAdapter) Run(ctx context.Context, inbox <-chan signal.Signal, _ chan<- RoutedSignal) {
	for {
		select {
		case s, ok := <-inbox:
			if !ok {
				a.logger.Info().Str("module", a.ID()).Msg("sink inbox closed, shutting down")
				return
			}
			if !a.sink.IsEnabled() {
				continue
			}
			if err := a.sink.Consume(ctx, s); err != nil {
				a.logger.Error().Err(err).Str("module", a.ID()).Str("kind", signal.Kind(s)).Msg("sink consume failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// ProcessorAdapter runs a Processor as a ModuleRuntime.
type ProcessorAdapter struct {
	proc   ports.Processor
	schema module.Schema
	logger zerolog.Logger
}

// NewProcessor wraps a processor.
func NewProcessor(proc ports.Processor, logger zerolog.Logger) *ProcessorAdapter {
	return &ProcessorAdapter{proc: proc, schema: proc.Schema(), logger: logger}
}

func (a *ProcessorAdapter) ID() string                     { return a.schema.ID }
func (a *ProcessorAdapter) Name() string                   { return a.proc.Name() }
func (a *ProcessorAdapter) Schema() module.Schema          { return a.schema }
func (a *ProcessorAdapter) ExecutionModel() ExecutionModel { return ExecutionAsync }
func (a *ProcessorAdapter) Priority() Priority             { return PriorityNormal }
func (a *ProcessorAdapter) IsEnabled() bool                { return a.proc.IsEnabled() }
func (a *ProcessorAdapter) SetEnabled(enabled bool)        { a.proc.SetEnabled(enabled) }

// Run receives from the inbox, processes, and forwards any output with
// provenance. Inputs received while disabled are dropped without
// processing; nothing is buffered across a disabled window. Processing
// errors are logged and the loop continues.
func (a *ProcessorAdapter) Run(ctx context.Context, inbox <-chan signal.Signal, outbox chan<- RoutedSignal) {
	for {
		select {
		case s, ok := <-inbox:
			if !ok {
				a.logger.Info().Str("module", a.ID()).Msg("processor inbox closed, shutting down")
				return
			}
			if !a.proc.IsEnabled() {
				continue
			}
			out, emit, err := a.proc.Process(ctx, s)
			if err != nil {
				a.logger.Error().Err(err).Str("module", a.ID()).Str("kind", signal.Kind(s)).Msg("processor failed")
				continue
			}
			if !emit {
				continue
			}
			select {
			case outbox <- RoutedSignal{SourceID: a.ID(), Signal: out}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

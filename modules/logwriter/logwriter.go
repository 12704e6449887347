// Package logwriter provides a built-in sink that writes every signal
// it receives to the structured log. Useful for wiring up a patch
// before a real consumer exists, and as the reference Sink shape.
package logwriter

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

// Sink logs each consumed signal at info level.
type Sink struct {
	id      string
	logger  zerolog.Logger
	enabled atomic.Bool
}

// New creates a log writer sink.
func New(id string, logger zerolog.Logger) *Sink {
	s := &Sink{id: id, logger: logger}
	s.enabled.Store(true)
	return s
}

func (s *Sink) Name() string { return "logwriter" }

func (s *Sink) Schema() module.Schema {
	return module.Schema{
		ID:          s.id,
		Name:        "logwriter",
		Description: "writes received signals to the log",
		Ports: []module.Port{
			{ID: "in", Label: "Any signal", DataType: signal.TypeAny, Direction: signal.DirectionInput},
		},
	}
}

func (s *Sink) IsEnabled() bool         { return s.enabled.Load() }
func (s *Sink) SetEnabled(enabled bool) { s.enabled.Store(enabled) }

// Consume logs the signal. Payload bodies stay out of the log; only
// the variant and a short preview are recorded.
func (s *Sink) Consume(ctx context.Context, sig signal.Signal) error {
	ev := s.logger.Info().Str("module", s.id).Str("kind", signal.Kind(sig))
	switch v := sig.(type) {
	case signal.Text:
		ev = ev.Str("text", preview(v.Value))
	case signal.Intent:
		ev = ev.Str("action", v.Action)
	case signal.Blob:
		ev = ev.Str("mime", v.MimeType).Int("bytes", len(v.Bytes))
	case signal.Audio:
		ev = ev.Uint32("sample_rate", v.SampleRate).Int("samples", len(v.Data))
	case signal.Computed:
		ev = ev.Str("source", v.Source)
	}
	ev.Msg("signal received")
	return nil
}

func preview(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

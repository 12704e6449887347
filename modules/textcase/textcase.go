// Package textcase provides a built-in processor that changes the case
// of text signals. It is the reference implementation of the Processor
// capability shape.
package textcase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/artpar/patchbay/domain/module"
	"github.com/artpar/patchbay/domain/signal"
)

// Mode selects the transformation.
type Mode string

const (
	Upper Mode = "upper"
	Lower Mode = "lower"
)

// Processor rewrites Text signals to the configured case. Non-text
// signals are consumed without output.
type Processor struct {
	id      string
	mode    Mode
	enabled atomic.Bool
}

// New creates a text case processor.
func New(id string, mode Mode) (*Processor, error) {
	if mode != Upper && mode != Lower {
		return nil, fmt.Errorf("unknown textcase mode %q", mode)
	}
	p := &Processor{id: id, mode: mode}
	p.enabled.Store(true)
	return p, nil
}

func (p *Processor) Name() string { return "textcase" }

func (p *Processor) Schema() module.Schema {
	return module.Schema{
		ID:          p.id,
		Name:        "textcase",
		Description: "rewrites text signals to " + string(p.mode) + " case",
		Ports: []module.Port{
			{ID: "in", Label: "Text in", DataType: signal.TypeText, Direction: signal.DirectionInput},
			{ID: "out", Label: "Text out", DataType: signal.TypeText, Direction: signal.DirectionOutput},
		},
	}
}

func (p *Processor) IsEnabled() bool         { return p.enabled.Load() }
func (p *Processor) SetEnabled(enabled bool) { p.enabled.Store(enabled) }

// Process transforms Text and passes everything else through silently.
func (p *Processor) Process(ctx context.Context, s signal.Signal) (signal.Signal, bool, error) {
	t, ok := s.(signal.Text)
	if !ok {
		return nil, false, nil
	}
	switch p.mode {
	case Lower:
		return signal.Text{Value: strings.ToLower(t.Value)}, true, nil
	default:
		return signal.Text{Value: strings.ToUpper(t.Value)}, true, nil
	}
}

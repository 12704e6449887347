package pulse

import (
	"context"
	"testing"
	"time"

	"github.com/artpar/patchbay/domain/signal"
)

func TestPollEmitsUntilLimit(t *testing.T) {
	s := New("pulse-1", time.Millisecond, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, ok := s.Poll(ctx)
		if !ok {
			t.Fatalf("Poll() %d exhausted early", i)
		}
		if got != (signal.Pulse{}) {
			t.Errorf("Poll() %d = %#v, want Pulse", i, got)
		}
	}
	if _, ok := s.Poll(ctx); ok {
		t.Error("Poll() after limit should report end-of-stream")
	}
}

func TestPollStopsOnCancel(t *testing.T) {
	s := New("pulse-1", time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := s.Poll(ctx); ok {
		t.Error("Poll() with cancelled context should report end-of-stream")
	}
}

func TestSchemaDeclaresOutput(t *testing.T) {
	s := New("pulse-1", time.Second, 0)
	schema := s.Schema()
	if err := schema.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	port, ok := schema.Port("out")
	if !ok {
		t.Fatal("schema has no out port")
	}
	if port.Direction != signal.DirectionOutput {
		t.Errorf("out port direction = %q, want output", port.Direction)
	}
}

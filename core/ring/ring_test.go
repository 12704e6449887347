package ring

import (
	"runtime"
	"testing"
)

func TestSendRecvOrder(t *testing.T) {
	tx, rx := Channel[uint32](4)

	for i := uint32(1); i <= 3; i++ {
		if !tx.TrySend(i) {
			t.Fatalf("TrySend(%d) = false, want true", i)
		}
	}

	for i := uint32(1); i <= 3; i++ {
		got, ok := rx.TryRecv()
		if !ok || got != i {
			t.Errorf("TryRecv() = (%d, %v), want (%d, true)", got, ok, i)
		}
	}

	if _, ok := rx.TryRecv(); ok {
		t.Error("TryRecv() on empty buffer = ok, want not ok")
	}
}

func TestSendWhenFull(t *testing.T) {
	tx, rx := Channel[uint32](4)

	for i := uint32(0); i < 4; i++ {
		if !tx.TrySend(i) {
			t.Fatalf("TrySend(%d) = false, want true", i)
		}
	}
	if !tx.IsFull() {
		t.Error("IsFull() = false, want true")
	}

	// Full buffer drops, does not block or grow.
	if tx.TrySend(99) {
		t.Error("TrySend on full buffer = true, want false")
	}
	if got := tx.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}

	// The dropped item never shows up.
	for i := uint32(0); i < 4; i++ {
		got, ok := rx.TryRecv()
		if !ok || got != i {
			t.Errorf("TryRecv() = (%d, %v), want (%d, true)", got, ok, i)
		}
	}
}

func TestWrapAround(t *testing.T) {
	tx, rx := Channel[int](4)

	for round := 0; round < 10; round++ {
		base := round * 3
		for i := 0; i < 3; i++ {
			if !tx.TrySend(base + i) {
				t.Fatalf("round %d: TrySend(%d) failed", round, base+i)
			}
		}
		for i := 0; i < 3; i++ {
			got, ok := rx.TryRecv()
			if !ok || got != base+i {
				t.Fatalf("round %d: TryRecv() = (%d, %v), want (%d, true)", round, got, ok, base+i)
			}
		}
	}
}

func TestConcurrentSPSC(t *testing.T) {
	const n = 100000
	tx, rx := Channel[uint32](1024)

	done := make(chan []uint32)
	go func() {
		received := make([]uint32, 0, n)
		for len(received) < n {
			if v, ok := rx.TryRecv(); ok {
				received = append(received, v)
			} else {
				runtime.Gosched()
			}
		}
		done <- received
	}()

	for i := uint32(0); i < n; i++ {
		for !tx.TrySend(i) {
			runtime.Gosched()
		}
	}

	received := <-done
	if len(received) != n {
		t.Fatalf("received %d items, want %d", len(received), n)
	}
	for i, v := range received {
		if v != uint32(i) {
			t.Fatalf("received[%d] = %d, want %d (reordered or duplicated)", i, v, i)
		}
	}
}

func TestBadCapacityPanics(t *testing.T) {
	for _, c := range []int{0, 1, 3, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Channel(%d) did not panic", c)
				}
			}()
			Channel[int](c)
		}()
	}
}

func TestFloatSamples(t *testing.T) {
	tx, rx := Channel[float32](2048)

	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = float32(i) * 0.001
	}

	for _, s := range samples {
		if !tx.TrySend(s) {
			t.Fatal("TrySend failed with room to spare")
		}
	}
	for i, want := range samples {
		got, ok := rx.TryRecv()
		if !ok || got != want {
			t.Fatalf("sample %d: TryRecv() = (%v, %v), want (%v, true)", i, got, ok, want)
		}
	}
}

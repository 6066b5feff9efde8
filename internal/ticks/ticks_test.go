package ticks

import (
	"testing"
	"time"
)

func TestSourceAdvancesMonotonically(t *testing.T) {
	s := New(time.Millisecond)
	defer s.Stop()

	first := s.Now()
	time.Sleep(20 * time.Millisecond)
	second := s.Now()

	if second <= first {
		t.Fatalf("expected tick to advance: first=%d second=%d", first, second)
	}
}

func TestMaxTickIsLargestValue(t *testing.T) {
	if MaxTick != ^uint64(0) {
		t.Fatalf("MaxTick changed: got %d", MaxTick)
	}
	if MaxTick < 1000000 {
		t.Fatal("MaxTick should sort after any realistic tick count")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(time.Millisecond)
	s.Stop()
	s.Stop()
}

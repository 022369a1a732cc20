package delivery

import (
	"context"
	"testing"
	"time"
)

func TestLimiterBurstThenWait(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(1, 2, clock)
	ctx := context.Background()

	// The first two acquires drain the burst without waiting.
	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire #%d error: %v", i+1, err)
		}
	}
	if waits := clock.recordedWaits(); len(waits) != 0 {
		t.Fatalf("burst acquires waited: %v", waits)
	}

	// The third must wait about one refill interval.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire #3 error: %v", err)
	}
	waits := clock.recordedWaits()
	if len(waits) == 0 {
		t.Fatal("third acquire did not wait")
	}
	if waits[0] < 900*time.Millisecond || waits[0] > 1100*time.Millisecond {
		t.Errorf("wait = %v, want about 1s", waits[0])
	}
}

func TestLimiterAcquireCancelled(t *testing.T) {
	clock := newFakeClock()
	clock.block = true
	l := NewLimiter(1, 1, clock)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

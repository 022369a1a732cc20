package delivery

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket that paces outbound provider calls. Acquire
// blocks until a token is available or the context is cancelled, so callers
// never drop work; they just wait their turn.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // tokens refilled per second
	burst  float64
	tokens float64
	last   time.Time
	clock  Clock
}

// NewLimiter creates a limiter allowing rate requests per second with the
// given burst capacity. The bucket starts full.
func NewLimiter(rate float64, burst int, clock Clock) *Limiter {
	if rate <= 0 {
		rate = 1
	}
	if burst < 1 {
		burst = 1
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Limiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   clock.Now(),
		clock:  clock,
	}
}

// Acquire takes one token, waiting for refill if the bucket is empty.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		l.refill(now)
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		select {
		case <-l.clock.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// refill credits tokens for the elapsed time. Caller holds l.mu.
func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.last)
	if elapsed <= 0 {
		return
	}
	l.last = now
	l.tokens += elapsed.Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}

package watch

import (
	"math/rand"
	"time"
)

// Backoff produces exponentially growing reconnect delays with jitter. Each
// Next call doubles the delay up to the cap; Reset returns to the base after
// a successful connection. The jitter spreads reconnects out so multiple
// chains dropped by the same upstream incident do not reconnect in lockstep.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

// jitterFrac is the +/- fraction applied to each delay.
const jitterFrac = 0.2

// NewBackoff creates a Backoff starting at base and capped at max.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{base: base, max: max, current: base}
}

// Next returns the delay to wait before the next attempt and advances the
// internal state. The returned value is jittered and clamped so it never
// exceeds the cap; the underlying un-jittered delay is monotonically
// non-decreasing between resets.
func (b *Backoff) Next() time.Duration {
	d := b.current

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	jitter := time.Duration((rand.Float64()*2 - 1) * jitterFrac * float64(d))
	if d+jitter > b.max {
		return b.max
	}
	return d + jitter
}

// Reset returns the delay to the base value. Call after a successful
// connection.
func (b *Backoff) Reset() {
	b.current = b.base
}

// Current exposes the un-jittered next delay, for tests and logging.
func (b *Backoff) Current() time.Duration {
	return b.current
}

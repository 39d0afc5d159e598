package service

import "time"

// Backoff tracks the poll loop's exponential retry delay. The zero value is
// not usable; construct with NewBackoff.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func NewBackoff(initial time.Duration, max time.Duration) Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}
	return Backoff{initial: initial, max: max, current: initial}
}

// Next returns the delay to wait now and doubles the following one, up to max.
func (b *Backoff) Next() time.Duration {
	delay := b.current

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return delay
}

func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the delay the next failure would wait.
func (b *Backoff) Current() time.Duration {
	return b.current
}

package queue

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff defaults.
const (
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultMaxRetryDelay  = 30 * time.Second
	DefaultMaxJitter      = 250 * time.Millisecond
)

// Backoff computes retry delays: BaseDelay doubled per attempt, capped at
// MaxDelay, plus a uniform jitter in [0, MaxJitter).
type Backoff struct {
	// BaseDelay is the delay before the first retry.
	// Defaults to 1 second if not set.
	BaseDelay time.Duration

	// MaxDelay caps the exponential part.
	// Defaults to 30 seconds if not set.
	MaxDelay time.Duration

	// MaxJitter bounds the random delay added on top.
	// Defaults to 250ms if not set. Negative disables jitter.
	MaxJitter time.Duration
}

// Delay returns the delay before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	return b.base(attempt) + b.jitter()
}

// base is the exponential part without jitter.
func (b Backoff) base(attempt int) time.Duration {
	baseDelay := b.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	return time.Duration(delay)
}

func (b Backoff) jitter() time.Duration {
	j := b.MaxJitter
	if j == 0 {
		j = DefaultMaxJitter
	}
	if j < 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(j)))
}

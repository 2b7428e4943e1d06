package transport

import (
	"sync"
	"time"

	pkgerrors "github.com/jdziat/weblytics-go/pkg/errors"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets requests through.
	BreakerClosed BreakerState = iota
	// BreakerOpen fails requests without sending them.
	BreakerOpen
	// BreakerHalfOpen lets one probe request through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive retryable failures that
	// opens the breaker. Default: 5.
	FailureThreshold int

	// Cooldown is how long the breaker stays open before a probe is
	// allowed. Default: 30 seconds.
	Cooldown time.Duration

	// OnStateChange is called, on its own goroutine, after each transition.
	OnStateChange func(from, to BreakerState)

	now func() time.Time
}

// Breaker stops sending while the API keeps failing. Only retryable errors
// (network failures, 429 and 5xx) count; a 4xx means the API is up.
//
// An open breaker makes every request fail with a status-0 APIError
// wrapping errors.ErrCircuitOpen, which is retryable, so queued batches are
// requeued and retried with backoff rather than dropped.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Breaker{cfg: cfg}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.cooledLocked() {
		return BreakerHalfOpen
	}
	return b.state
}

// Allow reports whether a request may be sent. After the cooldown exactly
// one caller is let through as a probe until its outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if !b.cooledLocked() {
			return false
		}
		b.setLocked(BreakerHalfOpen)
		fallthrough
	default:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

// Record reports the outcome of an allowed request.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := pkgerrors.IsRetryable(err)
	switch b.state {
	case BreakerClosed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openLocked()
		}
	case BreakerHalfOpen:
		b.probing = false
		if failed {
			b.openLocked()
			return
		}
		b.failures = 0
		b.setLocked(BreakerClosed)
	}
}

func (b *Breaker) openLocked() {
	b.openedAt = b.cfg.now()
	b.setLocked(BreakerOpen)
}

func (b *Breaker) cooledLocked() bool {
	return b.cfg.now().Sub(b.openedAt) >= b.cfg.Cooldown
}

func (b *Breaker) setLocked(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if fn := b.cfg.OnStateChange; fn != nil {
		go fn(from, to)
	}
}

// openCircuitError is returned for requests refused by an open breaker.
func openCircuitError() error {
	return &pkgerrors.APIError{
		StatusCode: 0,
		Message:    "request not sent",
		Err:        pkgerrors.ErrCircuitOpen,
	}
}

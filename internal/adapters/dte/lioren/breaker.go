package lioren

import (
	"context"
	"errors"
	"sync"
	"time"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // Submissions pass through
	BreakerOpen                         // Submissions fail fast
	BreakerHalfOpen                     // One probe submission is allowed
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker stops calling Lioren after consecutive outages. Only transport
// errors, timeouts and 5xx answers count as failures: a rejected document
// means the service is up.
type Breaker struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker opens after maxFailures consecutive failures and lets a probe
// through once cooldown has elapsed.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{maxFailures: maxFailures, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a submission may proceed. Callers that get nil must
// report the outcome with Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return dte.ErrProviderUnavailable
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return dte.ErrProviderUnavailable
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Record updates the breaker with the result of an allowed submission.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if errors.Is(err, context.Canceled) {
		return
	}

	if !isOutage(err) {
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Check fails while the breaker is open. It is used as a health check.
func (b *Breaker) Check(context.Context) error {
	if b.State() == BreakerOpen {
		return dte.ErrProviderUnavailable
	}
	return nil
}

func isOutage(err error) bool {
	if err == nil {
		return false
	}
	var upstream *dte.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode >= 500
	}
	return true
}

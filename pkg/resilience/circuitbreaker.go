// Package resilience guards calls to third-party APIs with a circuit breaker so an
// unavailable provider fails fast instead of holding request goroutines.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single probe through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitBreakerOpen is returned without calling fn while the breaker is open or a
// half-open probe is already in flight.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreaker opens after maxFailures consecutive failures and probes again once
// cooldown has passed.
type CircuitBreaker struct {
	maxFailures int
	cooldown    time.Duration
	isFailure   func(error) bool
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithFailurePredicate decides which errors count against the breaker. By default
// every non-nil error except a canceled context does.
func WithFailurePredicate(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) {
		if fn != nil {
			cb.isFailure = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

// NewCircuitBreaker creates a closed breaker. maxFailures below one is treated as one.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		maxFailures: max(1, maxFailures),
		cooldown:    cooldown,
		isFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
		now:   time.Now,
		state: StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs fn when the breaker allows it and records the result.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := cb.acquire()
	if err != nil {
		return err
	}
	err = fn(ctx)
	cb.record(probe, err != nil && cb.isFailure(err))
	return err
}

func (cb *CircuitBreaker) acquire() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false, ErrCircuitBreakerOpen
		}
		cb.state = StateHalfOpen
		fallthrough
	default:
		if cb.probing {
			return false, ErrCircuitBreakerOpen
		}
		cb.probing = true
		return true, nil
	}
}

func (cb *CircuitBreaker) record(probe, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probing = false
		if failed {
			cb.trip()
			return
		}
		cb.state = StateClosed
		cb.failures = 0
		return
	}
	if cb.state != StateClosed {
		return
	}
	if !failed {
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.failures >= cb.maxFailures {
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.failures = 0
}

// State returns the current state. An open breaker whose cooldown has elapsed still
// reports StateOpen until the next call probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count while closed.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
}

package health

import (
	"context"
	"time"

	"github.com/kaminari-anilist/kaminari/pkg/resilience"
)

// Pinger is satisfied by the store adapters.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// StoreChecker pings a store within a timeout and reports onFailure when the ping
// fails.
type StoreChecker struct {
	name      string
	store     Pinger
	timeout   time.Duration
	onFailure Status
}

func NewStoreChecker(name string, store Pinger, timeout time.Duration, onFailure Status) *StoreChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StoreChecker{name: name, store: store, timeout: timeout, onFailure: onFailure}
}

// NewDatabaseChecker probes the document store. Nothing can be served without it.
func NewDatabaseChecker(name string, db Pinger) *StoreChecker {
	return NewStoreChecker(name, db, 5*time.Second, StatusUnhealthy)
}

// NewCacheChecker probes a Redis instance. The rate limiter fails open and the
// response cache reads as empty, so an outage only degrades the service.
func NewCacheChecker(name string, cache Pinger) *StoreChecker {
	return NewStoreChecker(name, cache, 3*time.Second, StatusDegraded)
}

func (c *StoreChecker) Name() string { return c.name }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.store.HealthCheck(ctx)
	res := CheckResult{Name: c.name, Duration: time.Since(start)}
	if err != nil {
		res.Status = c.onFailure
		res.Error = err.Error()
		return res
	}
	res.Status = StatusHealthy
	res.Message = "reachable"
	return res
}

// BreakerChecker reports the circuit breaker in front of a third-party API. Any
// state other than closed degrades the service.
type BreakerChecker struct {
	provider string
	breaker  *resilience.CircuitBreaker
}

func NewBreakerChecker(provider string, breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{provider: provider, breaker: breaker}
}

func (c *BreakerChecker) Name() string { return "provider:" + c.provider }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	state := c.breaker.State()
	res := CheckResult{
		Name:    c.Name(),
		Status:  StatusHealthy,
		Message: state.String(),
		Details: map[string]any{"state": state.String(), "failures": c.breaker.Failures()},
	}
	if state != resilience.StateClosed {
		res.Status = StatusDegraded
	}
	return res
}

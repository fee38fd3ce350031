package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream 503")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newBreaker(maxFailures int, opts ...Option) (*CircuitBreaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewCircuitBreaker(maxFailures, time.Minute, append([]Option{WithClock(c.now)}, opts...)...), c
}

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_ClosedToOpen(t *testing.T) {
	cb, _ := newBreaker(3)
	ctx := context.Background()

	for i := range 3 {
		if err := cb.Execute(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %v", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitBreakerOpen) || called {
		t.Fatalf("open breaker must short-circuit, got %v called=%v", err, called)
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("success closes", func(t *testing.T) {
		cb, c := newBreaker(1)
		_ = cb.Execute(ctx, fail)
		c.advance(time.Minute)
		if err := cb.Execute(ctx, succeed); err != nil {
			t.Fatalf("probe: %v", err)
		}
		if cb.State() != StateClosed {
			t.Fatalf("expected closed, got %v", cb.State())
		}
	})

	t.Run("failure reopens", func(t *testing.T) {
		cb, c := newBreaker(1)
		_ = cb.Execute(ctx, fail)
		c.advance(time.Minute)
		_ = cb.Execute(ctx, fail)
		if cb.State() != StateOpen {
			t.Fatalf("expected open, got %v", cb.State())
		}
		c.advance(30 * time.Second)
		if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitBreakerOpen) {
			t.Fatalf("cooldown restarts on a failed probe, got %v", err)
		}
	})

	t.Run("single probe in flight", func(t *testing.T) {
		cb, c := newBreaker(1)
		_ = cb.Execute(ctx, fail)
		c.advance(time.Minute)

		release := make(chan struct{})
		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- cb.Execute(ctx, func(context.Context) error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started
		if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitBreakerOpen) {
			t.Fatalf("second caller during the probe must be rejected, got %v", err)
		}
		close(release)
		if err := <-done; err != nil {
			t.Fatal(err)
		}
		if cb.State() != StateClosed {
			t.Fatalf("expected closed, got %v", cb.State())
		}
	})
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newBreaker(3)
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	if cb.Failures() != 0 {
		t.Fatalf("expected failures reset, got %d", cb.Failures())
	}
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateClosed {
		t.Fatal("non-consecutive failures must not open the breaker")
	}
}

func TestCircuitBreaker_FailurePredicate(t *testing.T) {
	notFound := errors.New("404")
	cb, _ := newBreaker(1, WithFailurePredicate(func(err error) bool { return !errors.Is(err, notFound) }))
	ctx := context.Background()

	for range 5 {
		_ = cb.Execute(ctx, func(context.Context) error { return notFound })
	}
	if cb.State() != StateClosed {
		t.Fatal("client errors must not open the breaker")
	}

	_ = cb.Execute(ctx, func(context.Context) error { return context.Canceled })
	if cb.State() != StateOpen {
		t.Fatal("a custom predicate replaces the default one")
	}
}

func TestCircuitBreaker_DefaultIgnoresCancellation(t *testing.T) {
	cb, _ := newBreaker(1)
	_ = cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	if cb.State() != StateClosed {
		t.Fatal("a caller giving up is not a provider failure")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newBreaker(1)
	_ = cb.Execute(context.Background(), fail)
	cb.Reset()
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Fatalf("expected a closed breaker, got %v/%d", cb.State(), cb.Failures())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown"}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d: expected %q, got %q", s, want, s.String())
		}
	}
}

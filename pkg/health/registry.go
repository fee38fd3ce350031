// Package health runs the dependency probes behind the management /health and
// /ready endpoints.
package health

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusHealthy Status = "healthy"
	// StatusDegraded still counts as ready: requests are served while an upstream
	// such as the cache or a provider is failing.
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) severity() int {
	switch s {
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	default:
		return 0
	}
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
	Details  map[string]any `json:"details,omitempty"`
}

type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Report combines every probe. Status is the worst individual status.
type Report struct {
	Status    Status        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checkedAt"`
	Duration  time.Duration `json:"duration"`
}

// Ready reports whether the instance should receive traffic.
func (r Report) Ready() bool {
	return r.Status != StatusUnhealthy
}

type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

func NewRegistry() *Registry {
	return &Registry{checkers: map[string]Checker{}}
}

// Register adds c. A checker registered under the same name is replaced.
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	r.checkers[c.Name()] = c
	r.mu.Unlock()
}

// RegisterFunc registers fn under name. The result is always reported as name.
func (r *Registry) RegisterFunc(name string, fn func(context.Context) CheckResult) {
	r.Register(funcChecker{name: name, fn: fn})
}

// Names lists the registered probes in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.checkers))
}

// Check runs all probes in parallel and returns their results sorted by name.
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	checkers := slices.SortedFunc(maps.Values(r.checkers), func(a, b Checker) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		}
		return 0
	})
	r.mu.RUnlock()

	start := time.Now()
	report := Report{Status: StatusHealthy, Checks: make([]CheckResult, len(checkers))}
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			report.Checks[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Checks {
		if res.Status.severity() > report.Status.severity() {
			report.Status = res.Status
		}
	}
	report.CheckedAt = time.Now()
	report.Duration = report.CheckedAt.Sub(start)
	return report
}

type funcChecker struct {
	name string
	fn   func(context.Context) CheckResult
}

func (f funcChecker) Name() string { return f.name }

func (f funcChecker) Check(ctx context.Context) CheckResult {
	res := f.fn(ctx)
	res.Name = f.name
	return res
}

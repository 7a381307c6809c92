// Package handlers contains the health checks served by the worker's
// operational HTTP endpoints.
package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker defines the interface for health checking.
type HealthChecker interface {
	// Check performs a health check and returns the status.
	Check(ctx context.Context) HealthStatus

	// AddCheck adds a named health check function.
	AddCheck(name string, check HealthCheckFunc)

	// RemoveCheck removes a named health check.
	RemoveCheck(name string)
}

// HealthCheckFunc performs a single health check. It returns an error if
// the check fails.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus represents the overall health status of the worker.
type HealthStatus struct {
	// Healthy indicates if every check passed.
	Healthy bool `json:"healthy"`

	// Ready indicates if the worker can serve traffic. Optional checks
	// (the cache) affect Healthy but not Ready.
	Ready bool `json:"ready"`

	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Healthy     bool      `json:"healthy"`
	Optional    bool      `json:"optional,omitempty"`
	Message     string    `json:"message,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

type registeredCheck struct {
	fn       HealthCheckFunc
	optional bool
}

// CompositeHealthChecker aggregates multiple health checks and runs them
// in parallel, each under its own timeout.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]registeredCheck
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a new composite health checker.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]registeredCheck),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout sets the timeout for individual health checks.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// AddCheck adds a required health check. A failing required check makes
// the worker unready.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registeredCheck{fn: check}
}

// AddOptionalCheck adds a check that only degrades health.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registeredCheck{fn: check, optional: true}
}

// RemoveCheck removes a named health check.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

type namedResult struct {
	name   string
	result CheckResult
}

// Check performs all health checks and returns the aggregated status.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]registeredCheck, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	timeout := c.timeout
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(checks) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	var wg sync.WaitGroup
	results := make(chan namedResult, len(checks))

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check registeredCheck) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := check.fn(checkCtx)

			result := CheckResult{
				Healthy:     err == nil,
				Optional:    check.optional,
				Message:     "OK",
				Duration:    time.Since(start).Round(time.Millisecond).String(),
				LastChecked: time.Now().UTC(),
			}
			if err != nil {
				result.Message = err.Error()
			}
			results <- namedResult{name: name, result: result}
		}(name, check)
	}

	wg.Wait()
	close(results)

	var failed []string
	for r := range results {
		status.Checks[r.name] = r.result
		if r.result.Healthy {
			continue
		}
		status.Healthy = false
		if !r.result.Optional {
			status.Ready = false
		}
		failed = append(failed, r.name)
	}

	if status.Healthy {
		status.Message = "All checks passed"
	} else {
		sort.Strings(failed)
		status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	}

	return status
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is implemented by the Postgres connection and the Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrNotConfigured is reported by a ping check built around a nil Pinger.
var ErrNotConfigured = errors.New("not configured")

// NewPingCheck creates a health check that pings a backing store.
func NewPingCheck(p Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return ErrNotConfigured
		}
		return p.Ping(ctx)
	}
}

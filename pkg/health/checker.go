// Package health reports whether a stepform server can take new wizard
// sessions.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome of a check or of the whole report.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultTimeout bounds a check registered without one.
const DefaultTimeout = 2 * time.Second

// ErrAtCapacity is returned by SessionCapacity when no more sessions fit.
var ErrAtCapacity = errors.New("health: live sessions at capacity")

// Result is the outcome of one check.
type Result struct {
	Status     Status `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Report is the aggregate returned by Checker.Check.
type Report struct {
	Status    Status            `json:"status"`
	Checks    map[string]Result `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
}

// CheckFunc reports a problem by returning an error.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	timeout  time.Duration
	critical bool
}

// Checker runs registered checks concurrently.
type Checker struct {
	mu      sync.RWMutex
	checks  []check
	version string
}

// NewChecker creates a checker reporting version.
func NewChecker(version string) *Checker {
	return &Checker{version: version}
}

// Add registers a check whose failure degrades the report.
func (c *Checker) Add(name string, fn CheckFunc, timeout time.Duration) {
	c.add(check{name: name, fn: fn, timeout: timeout})
}

// AddCritical registers a check whose failure makes the server unready.
func (c *Checker) AddCritical(name string, fn CheckFunc, timeout time.Duration) {
	c.add(check{name: name, fn: fn, timeout: timeout, critical: true})
}

func (c *Checker) add(ch check) {
	if ch.timeout <= 0 {
		ch.timeout = DefaultTimeout
	}
	c.mu.Lock()
	c.checks = append(c.checks, ch)
	c.mu.Unlock()
}

// Check runs every check and folds the results into a report.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]check(nil), c.checks...)
	c.mu.RUnlock()

	results := make([]Result, len(checks))
	var g errgroup.Group
	for i, ch := range checks {
		g.Go(func() error {
			results[i] = run(ctx, ch)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]Result, len(checks)),
		Timestamp: time.Now(),
		Version:   c.version,
	}
	for i, ch := range checks {
		res := results[i]
		rep.Checks[ch.name] = res
		if res.Status == StatusHealthy {
			continue
		}
		if ch.critical {
			rep.Status = StatusUnhealthy
		} else if rep.Status == StatusHealthy {
			rep.Status = StatusDegraded
		}
	}
	return rep
}

func run(ctx context.Context, ch check) Result {
	ctx, cancel := context.WithTimeout(ctx, ch.timeout)
	defer cancel()

	start := time.Now()
	err := ch.fn(ctx)
	res := Result{Status: StatusHealthy, DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Error = err.Error()
	}
	return res
}

// LivenessHandler answers 200 while the process runs.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "alive", "timestamp": time.Now()})
	})
}

// ReadinessHandler answers 503 when a critical check fails.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rep := c.Check(r.Context())
		code := http.StatusOK
		if rep.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, rep)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// SessionCapacity fails once count reaches limit. A limit of zero
// disables the check.
func SessionCapacity(count func() int, limit int) CheckFunc {
	return func(context.Context) error {
		if n := count(); limit > 0 && n >= limit {
			return fmt.Errorf("%w: %d of %d", ErrAtCapacity, n, limit)
		}
		return nil
	}
}

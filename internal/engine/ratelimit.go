// internal/engine/ratelimit.go
package engine

import (
	"sync"
	"time"

	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * Per-tenant hourly action budget.
 *
 * One global window governs every tenant: on any access, if at least one hour
 * has elapsed since the last reset, the entire counter map is cleared and the
 * window start advances to now. The window is elapsed-time based, not
 * calendar-aligned, and deliberately not per-tenant: crossing the hour
 * resets every tenant at once.
 *
 * Consulted by the orchestrator only before autonomous execution; confirm and
 * advise paths are bounded by human approval throughput instead.
 */

// DefaultMaxActionsPerHour is the autonomous action budget per tenant.
const DefaultMaxActionsPerHour = 100

// rateWindow is how long counters accumulate before the global reset.
const rateWindow = time.Hour

// RateLimiter tracks autonomous action counts per tenant inside one shared
// hourly window.
type RateLimiter struct {
	mu          sync.Mutex
	max         int
	counts      map[types.TenantID]int
	windowStart time.Time
	clock       func() time.Time
}

// NewRateLimiter creates a limiter with the given hourly budget.
// Non-positive max selects the default.
func NewRateLimiter(max int) *RateLimiter {
	if max <= 0 {
		max = DefaultMaxActionsPerHour
	}
	return &RateLimiter{
		max:    max,
		counts: make(map[types.TenantID]int),
		clock:  time.Now,
	}
}

// CanExecute reports whether the tenant still has budget in the current window.
func (r *RateLimiter) CanExecute(tenantID types.TenantID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maybeResetLocked()
	return r.counts[tenantID] < r.max
}

// RecordExecution consumes one unit of the tenant's budget.
func (r *RateLimiter) RecordExecution(tenantID types.TenantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maybeResetLocked()
	r.counts[tenantID]++
}

// Remaining returns the tenant's unused budget in the current window.
func (r *RateLimiter) Remaining(tenantID types.TenantID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maybeResetLocked()
	left := r.max - r.counts[tenantID]
	if left < 0 {
		return 0
	}
	return left
}

// maybeResetLocked clears every tenant's counter once the shared window has
// aged past one hour. Caller must hold the mutex.
func (r *RateLimiter) maybeResetLocked() {
	now := r.clock()
	if r.windowStart.IsZero() {
		r.windowStart = now
		return
	}
	if now.Sub(r.windowStart) >= rateWindow {
		r.counts = make(map[types.TenantID]int)
		r.windowStart = now
	}
}

// Reset clears all counters and the window. Intended for tests.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[types.TenantID]int)
	r.windowStart = time.Time{}
}

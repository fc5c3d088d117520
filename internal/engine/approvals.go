// internal/engine/approvals.go
package engine

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * Approval lifecycle.
 *
 * State machine per PendingApproval:
 *   pending -> approved | rejected   (explicit, terminal)
 *   pending -> expired               (time-driven, terminal)
 *
 * Expiry is enforced two ways: lazily on every read (Get marks and evicts a
 * stale record before reporting not-found) and by a periodic sweep goroutine
 * so memory stays bounded even if nobody polls. Approve/reject/get on a
 * non-existent, terminal, or freshly-expired id return nil; that is an
 * expected outcome, not an error.
 *
 * The sweep goroutine and the synchronous API share one mutex; Close stops
 * the sweeper so tests and shutdown dispose of the handler deterministically.
 */

// DefaultApprovalExpiration is the pending-approval time box.
const DefaultApprovalExpiration = 60 * time.Minute

// DefaultSweepInterval is how often stale approvals are evicted.
const DefaultSweepInterval = 5 * time.Minute

// DetermineExecutionStatus maps a rule's autonomy level to its execution
// status. Pure, total: the sole policy mapping from configuration to
// behavior. Unknown levels fall back to advisory, the least autonomous tier.
func DetermineExecutionStatus(level types.AutonomyLevel) types.ExecutionStatus {
	switch level {
	case types.AutonomyAutonomous:
		return types.StatusExecuted
	case types.AutonomyConfirm:
		return types.StatusPendingApproval
	case types.AutonomyAdvise:
		return types.StatusAdvised
	default:
		return types.StatusAdvised
	}
}

// ApprovalHandler owns the pending-approval map and its expiry lifecycle.
type ApprovalHandler struct {
	mu        sync.Mutex
	approvals map[types.ApprovalID]*types.PendingApproval

	expiration time.Duration
	clock      func() time.Time
	logger     *log.Logger // nil disables audit lines

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewApprovalHandler creates a handler and starts its sweep goroutine.
// Zero expiration or sweepInterval select the defaults. Callers must Close
// the handler to stop the sweeper.
func NewApprovalHandler(expiration, sweepInterval time.Duration, logger *log.Logger) *ApprovalHandler {
	if expiration <= 0 {
		expiration = DefaultApprovalExpiration
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	h := &ApprovalHandler{
		approvals:  make(map[types.ApprovalID]*types.PendingApproval),
		expiration: expiration,
		clock:      time.Now,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	go h.run(sweepInterval)
	return h
}

// run drives the periodic sweep until Close.
func (h *ApprovalHandler) run(interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Sweep()
		case <-h.stop:
			return
		}
	}
}

// Close stops the sweep goroutine. Safe to call more than once.
func (h *ApprovalHandler) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
		<-h.done
	})
}

// Create records a pending approval for a confirm-level match.
// Stamps createdAt = now and expiresAt = now + expiration.
func (h *ApprovalHandler) Create(rule *types.AutomationRule, candidateID types.CandidateID, action types.RuleAction, explanation string) types.PendingApproval {
	now := h.clock()
	approval := types.PendingApproval{
		ID:          types.NewApprovalID(),
		TenantID:    rule.TenantID,
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		CandidateID: candidateID,
		Action:      action,
		Explanation: explanation,
		CreatedAt:   now,
		ExpiresAt:   now.Add(h.expiration),
		Status:      types.ApprovalPending,
	}

	h.mu.Lock()
	stored := approval
	h.approvals[approval.ID] = &stored
	h.mu.Unlock()

	h.logf("approval %s created for rule %q candidate %s (expires %s)",
		approval.ID, rule.Name, candidateID, approval.ExpiresAt.Format(time.RFC3339))
	return approval
}

// Get returns the approval if it is still actively pending. A record past its
// expiry is marked expired and evicted before reporting not-found, so expiry
// holds even between sweeps.
func (h *ApprovalHandler) Get(id types.ApprovalID) *types.PendingApproval {
	h.mu.Lock()
	defer h.mu.Unlock()

	approval, ok := h.approvals[id]
	if !ok {
		return nil
	}
	if h.expireLocked(approval) {
		return nil
	}
	out := *approval
	return &out
}

// Approve transitions a pending approval to approved and returns the record.
// Returns nil when the id is unknown, already terminal, or expired.
func (h *ApprovalHandler) Approve(id types.ApprovalID) *types.PendingApproval {
	return h.resolve(id, types.ApprovalApproved)
}

// Reject transitions a pending approval to rejected and returns the record.
// Returns nil when the id is unknown, already terminal, or expired.
func (h *ApprovalHandler) Reject(id types.ApprovalID) *types.PendingApproval {
	return h.resolve(id, types.ApprovalRejected)
}

func (h *ApprovalHandler) resolve(id types.ApprovalID, terminal types.ApprovalStatus) *types.PendingApproval {
	h.mu.Lock()
	defer h.mu.Unlock()

	approval, ok := h.approvals[id]
	if !ok {
		return nil
	}
	if h.expireLocked(approval) {
		return nil
	}
	if approval.Status != types.ApprovalPending {
		return nil
	}

	approval.Status = terminal
	delete(h.approvals, id)
	h.logf("approval %s %s (rule %q candidate %s)", id, terminal, approval.RuleName, approval.CandidateID)
	out := *approval
	return &out
}

// List runs the sweep, then returns all still-pending approvals, optionally
// filtered by tenant (empty tenant returns everything). Results are ordered
// by creation time for deterministic listings.
func (h *ApprovalHandler) List(tenantID types.TenantID) []types.PendingApproval {
	h.Sweep()

	h.mu.Lock()
	defer h.mu.Unlock()

	var out []types.PendingApproval
	for _, approval := range h.approvals {
		if approval.Status != types.ApprovalPending {
			continue
		}
		if tenantID != "" && approval.TenantID != tenantID {
			continue
		}
		out = append(out, *approval)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Sweep marks and evicts every approval past its expiry. Guarantees bounded
// memory even if nobody polls Get.
func (h *ApprovalHandler) Sweep() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, approval := range h.approvals {
		h.expireLocked(approval)
	}
}

// expireLocked marks and evicts the record when now is past its expiry.
// Caller must hold the mutex. Returns true when the record expired.
func (h *ApprovalHandler) expireLocked(approval *types.PendingApproval) bool {
	if approval.Status != types.ApprovalPending {
		return false
	}
	if !h.clock().After(approval.ExpiresAt) {
		return false
	}
	approval.Status = types.ApprovalExpired
	delete(h.approvals, approval.ID)
	h.logf("approval %s expired (rule %q candidate %s)", approval.ID, approval.RuleName, approval.CandidateID)
	return true
}

// Reset drops all approvals. Intended for tests and engine disposal.
func (h *ApprovalHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.approvals = make(map[types.ApprovalID]*types.PendingApproval)
}

func (h *ApprovalHandler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

// internal/engine/engine.go
package engine

import (
	"log"
	"os"
	"time"

	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * Engine composition.
 *
 * One Engine value owns the rule store, matcher, approval handler, and rate
 * limiter for a tenant set. It is constructed once by the process's
 * composition root and passed by handle to all callers; no package-level
 * singletons. Reset and Close give tests and shutdown deterministic disposal.
 *
 * Decide is the single-call orchestration: apply rules, stamp each match
 * with its execution status, and open a pending approval for confirm-level
 * matches. Actual execution (and the budget check that gates it) belongs to
 * the caller: the engine reports policy, the orchestrator acts on it.
 */

// Options configures an Engine. Zero values select documented defaults.
type Options struct {
	// DefaultAutonomyLevel applies when a matched rule carries no level.
	// In practice every rule specifies its own. Default: advise.
	DefaultAutonomyLevel types.AutonomyLevel

	// MaxActionsPerHour caps autonomous executions per tenant. Default: 100.
	MaxActionsPerHour int

	// ApprovalExpiration time-boxes pending approvals. Default: 60m.
	ApprovalExpiration time.Duration

	// UndoWindow bounds how long an executed action stays undoable. Default: 60m.
	UndoWindow time.Duration

	// SweepInterval drives the approval expiry sweep. Default: 5m.
	SweepInterval time.Duration

	// EnableLogging emits audit lines for matches, approvals, and budget use.
	EnableLogging bool

	// Logger overrides the destination for audit lines. Defaults to stderr.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.DefaultAutonomyLevel == "" {
		o.DefaultAutonomyLevel = types.AutonomyAdvise
	}
	if o.MaxActionsPerHour <= 0 {
		o.MaxActionsPerHour = DefaultMaxActionsPerHour
	}
	if o.ApprovalExpiration <= 0 {
		o.ApprovalExpiration = DefaultApprovalExpiration
	}
	if o.UndoWindow <= 0 {
		o.UndoWindow = DefaultApprovalExpiration
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.EnableLogging && o.Logger == nil {
		o.Logger = log.New(os.Stderr, "engine: ", log.LstdFlags)
	}
	if !o.EnableLogging {
		o.Logger = nil
	}
	return o
}

// Decision is one rule's outcome for a snapshot: the match result plus the
// engine's execution verdict and, for confirm matches, the approval opened.
type Decision struct {
	types.MatchResult
	Status     types.ExecutionStatus `json:"status,omitempty"`
	ApprovalID types.ApprovalID      `json:"approvalId,omitempty"`
}

// Engine owns all rule, approval, and budget state for a tenant set.
type Engine struct {
	opts      Options
	store     *Store
	matcher   *Matcher
	approvals *ApprovalHandler
	limiter   *RateLimiter
}

// New constructs an engine and starts its approval sweeper. Callers must
// Close the engine when done with it.
func New(opts Options) *Engine {
	opts = opts.withDefaults()
	store := NewStore()
	return &Engine{
		opts:      opts,
		store:     store,
		matcher:   NewMatcher(store),
		approvals: NewApprovalHandler(opts.ApprovalExpiration, opts.SweepInterval, opts.Logger),
		limiter:   NewRateLimiter(opts.MaxActionsPerHour),
	}
}

// Close stops background activity. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.approvals.Close()
}

// Reset clears all rule, approval, and budget state while keeping the engine
// usable. Intended for tests.
func (e *Engine) Reset() {
	e.store.Reset()
	e.approvals.Reset()
	e.limiter.Reset()
}

// UndoWindow reports how long an executed action stays undoable.
func (e *Engine) UndoWindow() time.Duration {
	return e.opts.UndoWindow
}

// AddRule validates and stores a rule. See Store.Add for upsert semantics.
func (e *Engine) AddRule(rule *types.AutomationRule) error {
	if err := e.store.Add(rule); err != nil {
		return err
	}
	e.logf("rule %q (%s) stored for tenant %s priority %d", rule.Name, rule.ID, rule.TenantID, rule.Priority)
	return nil
}

// RemoveRule deletes a rule by id. Returns false when unknown.
func (e *Engine) RemoveRule(id types.RuleID) bool {
	return e.store.Remove(id)
}

// SetRuleEnabled toggles a rule. Returns false when unknown.
func (e *Engine) SetRuleEnabled(id types.RuleID, enabled bool) bool {
	return e.store.SetEnabled(id, enabled)
}

// GetRule returns a rule by id.
func (e *Engine) GetRule(id types.RuleID) (types.AutomationRule, bool) {
	return e.store.Get(id)
}

// Rules returns every stored rule in priority order.
func (e *Engine) Rules() []types.AutomationRule {
	return e.store.All()
}

// ApplyRules evaluates every applicable rule without deciding execution.
func (e *Engine) ApplyRules(candidate *types.CandidateSnapshot, tenantID types.TenantID, scopeID types.ScopeID) []types.MatchResult {
	return e.matcher.ApplyRules(candidate, tenantID, scopeID)
}

// FindMatchingRule returns the highest-priority match only, or nil.
func (e *Engine) FindMatchingRule(candidate *types.CandidateSnapshot, tenantID types.TenantID, scopeID types.ScopeID) *types.MatchResult {
	return e.matcher.FindMatchingRule(candidate, tenantID, scopeID)
}

// Decide applies the tenant's rules and stamps every match with its execution
// status. Confirm-level matches open a pending approval whose id rides along
// on the decision. Non-matches pass through with no status.
func (e *Engine) Decide(candidate *types.CandidateSnapshot, tenantID types.TenantID, scopeID types.ScopeID) []Decision {
	results := e.matcher.ApplyRules(candidate, tenantID, scopeID)
	decisions := make([]Decision, 0, len(results))

	for _, result := range results {
		decision := Decision{MatchResult: result}
		if result.Matched {
			level := result.AutonomyLevel
			if level == "" {
				level = e.opts.DefaultAutonomyLevel
			}
			decision.Status = DetermineExecutionStatus(level)
			e.logf("rule %q matched candidate %s: status %s", result.RuleName, candidate.ID, decision.Status)

			if decision.Status == types.StatusPendingApproval {
				if rule, ok := e.store.Get(result.RuleID); ok {
					approval := e.approvals.Create(&rule, candidate.ID, *result.Action, result.Explanation)
					decision.ApprovalID = approval.ID
				}
			}
		}
		decisions = append(decisions, decision)
	}

	return decisions
}

// CanExecute reports whether the tenant has autonomous budget left.
func (e *Engine) CanExecute(tenantID types.TenantID) bool {
	return e.limiter.CanExecute(tenantID)
}

// RecordExecution consumes one budget unit and bumps the rule's executed
// counter. Called by the orchestrator after performing an autonomous action.
func (e *Engine) RecordExecution(tenantID types.TenantID, ruleID types.RuleID) {
	e.limiter.RecordExecution(tenantID)
	e.store.RecordExecuted(ruleID)
	e.logf("execution recorded for tenant %s rule %s (remaining budget %d)", tenantID, ruleID, e.limiter.Remaining(tenantID))
}

// RecordApprovedExecution bumps the rule's executed counter without touching
// the autonomous budget. Used when a human approves a confirm-level action:
// the hourly cap applies to unattended executions only.
func (e *Engine) RecordApprovedExecution(ruleID types.RuleID) {
	e.store.RecordExecuted(ruleID)
}

// RecordUndo bumps the rule's undone counter after the orchestrator reverses
// an executed action.
func (e *Engine) RecordUndo(ruleID types.RuleID) {
	e.store.RecordUndone(ruleID)
}

// RemainingBudget returns the tenant's unused autonomous budget.
func (e *Engine) RemainingBudget(tenantID types.TenantID) int {
	return e.limiter.Remaining(tenantID)
}

// GetApproval returns an actively pending approval, or nil.
func (e *Engine) GetApproval(id types.ApprovalID) *types.PendingApproval {
	return e.approvals.Get(id)
}

// Approve resolves a pending approval. Returns nil when it is not actionable.
func (e *Engine) Approve(id types.ApprovalID) *types.PendingApproval {
	return e.approvals.Approve(id)
}

// Reject resolves a pending approval. Returns nil when it is not actionable.
func (e *Engine) Reject(id types.ApprovalID) *types.PendingApproval {
	return e.approvals.Reject(id)
}

// PendingApprovals sweeps, then lists still-pending approvals for the tenant
// (empty tenant lists all).
func (e *Engine) PendingApprovals(tenantID types.TenantID) []types.PendingApproval {
	return e.approvals.List(tenantID)
}

func (e *Engine) logf(format string, args ...any) {
	if e.opts.Logger != nil {
		e.opts.Logger.Printf(format, args...)
	}
}

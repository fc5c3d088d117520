// internal/engine/matcher.go
package engine

import (
	"fmt"
	"time"

	"github.com/hirepilot/hirepilot/internal/rules"
	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * Rule matching.
 *
 * ApplyRules runs the condition evaluator over every enabled, in-scope rule
 * in priority order and returns one MatchResult per rule, matched or not.
 * A match increments the rule's triggered counter and carries the action and
 * autonomy level; every result carries a human-readable explanation naming
 * the rule and, on match, the implied action with the candidate's fitScore
 * for context.
 *
 * Determinism: for a fixed rule set and snapshot, repeated calls return
 * identical results (ordering comes from the store, evaluation is pure).
 */

// Matcher evaluates candidate snapshots against a store's rules.
type Matcher struct {
	store *Store
	clock func() time.Time
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store, clock: time.Now}
}

// ApplyRules evaluates every applicable rule for the tenant (and optional
// sub-scope) against the snapshot. Results come back in priority order, one
// per rule. An empty scope applies all of the tenant's enabled rules.
func (m *Matcher) ApplyRules(candidate *types.CandidateSnapshot, tenantID types.TenantID, scopeID types.ScopeID) []types.MatchResult {
	var applicable []*types.AutomationRule
	if scopeID == "" {
		applicable = m.store.ListForTenant(tenantID)
	} else {
		applicable = m.store.ListForScope(tenantID, scopeID)
	}

	now := m.clock()
	results := make([]types.MatchResult, 0, len(applicable))
	for _, rule := range applicable {
		result := types.MatchResult{
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			Timestamp: now,
		}

		if rules.Evaluate(candidate, rule.Condition) {
			m.store.RecordTriggered(rule.ID)
			action := rule.Action
			result.Matched = true
			result.Action = &action
			result.AutonomyLevel = rule.AutonomyLevel
			result.Explanation = fmt.Sprintf(
				"rule %q matched: %s candidate %s (fitScore %.1f)",
				rule.Name, rule.Action.Type, candidate.ID, candidate.FitScore,
			)
		} else {
			result.Explanation = fmt.Sprintf("rule %q did not match candidate %s", rule.Name, candidate.ID)
		}

		results = append(results, result)
	}

	return results
}

// FindMatchingRule returns the highest-priority matching result only, for
// callers that want single-winner semantics. Returns nil when nothing matches.
func (m *Matcher) FindMatchingRule(candidate *types.CandidateSnapshot, tenantID types.TenantID, scopeID types.ScopeID) *types.MatchResult {
	for _, result := range m.ApplyRules(candidate, tenantID, scopeID) {
		if result.Matched {
			r := result
			return &r
		}
	}
	return nil
}

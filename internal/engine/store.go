// internal/engine/store.go
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/hirepilot/hirepilot/internal/rules"
	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * In-memory rule store.
 *
 * Owns all rule state exclusively: every mutation (add, remove, enable,
 * stats counters) goes through store methods behind one RWMutex. The ordered
 * listing is kept sorted by priority descending at all times; ties keep
 * insertion order stable so repeated listings are deterministic.
 *
 * Add validates before storing (fail-fast at authoring time) and upserts when
 * the rule id already exists: content is replaced, but CreatedAt, insertion
 * slot, and accumulated stats survive the update.
 */

type storeEntry struct {
	rule *types.AutomationRule
	seq  int // insertion order, stable tiebreak for equal priorities
}

// Store is an in-memory ordered collection of automation rules.
type Store struct {
	mu      sync.RWMutex
	byID    map[types.RuleID]*storeEntry
	ordered []*storeEntry
	nextSeq int
	clock   func() time.Time
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{
		byID:  make(map[types.RuleID]*storeEntry),
		clock: time.Now,
	}
}

// Add validates the rule and stores it, assigning an id if absent.
// Returns *types.ValidationError without storing when validation fails.
// Re-adding an existing id upserts: CreatedAt, insertion order, and stats
// are preserved; everything else is replaced.
func (s *Store) Add(rule *types.AutomationRule) error {
	if err := rules.ValidateRule(rule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if rule.ID == "" {
		rule.ID = types.NewRuleID()
	}

	if existing, ok := s.byID[rule.ID]; ok {
		rule.CreatedAt = existing.rule.CreatedAt
		rule.Stats = existing.rule.Stats
		rule.UpdatedAt = now
		existing.rule = rule
	} else {
		// Non-zero timestamps come from persisted rules being rehydrated;
		// keep them instead of restamping on every restart.
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = now
		}
		if rule.UpdatedAt.IsZero() {
			rule.UpdatedAt = now
		}
		entry := &storeEntry{rule: rule, seq: s.nextSeq}
		s.nextSeq++
		s.byID[rule.ID] = entry
		s.ordered = append(s.ordered, entry)
	}

	s.resort()
	return nil
}

// resort restores priority-descending order. Stable sort with the insertion
// sequence as tiebreak keeps equal-priority rules in add order.
// Caller must hold the write lock.
func (s *Store) resort() {
	sort.SliceStable(s.ordered, func(i, j int) bool {
		if s.ordered[i].rule.Priority != s.ordered[j].rule.Priority {
			return s.ordered[i].rule.Priority > s.ordered[j].rule.Priority
		}
		return s.ordered[i].seq < s.ordered[j].seq
	})
}

// Remove deletes a rule by id. Returns false when the id is unknown.
func (s *Store) Remove(id types.RuleID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, e := range s.ordered {
		if e.rule.ID == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return true
}

// SetEnabled toggles a rule without re-validating it.
// Returns false when the id is unknown.
func (s *Store) SetEnabled(id types.RuleID, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	if !ok {
		return false
	}
	entry.rule.Enabled = enabled
	entry.rule.UpdatedAt = s.clock()
	return true
}

// Get returns the rule by id, or (zero, false) when unknown.
// The returned value is a copy; mutation goes through store methods.
func (s *Store) Get(id types.RuleID) (types.AutomationRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byID[id]
	if !ok {
		return types.AutomationRule{}, false
	}
	return *entry.rule, true
}

// ListForTenant returns the tenant's enabled rules (tenant-wide and scoped)
// in priority order.
func (s *Store) ListForTenant(tenantID types.TenantID) []*types.AutomationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.AutomationRule
	for _, e := range s.ordered {
		if e.rule.TenantID == tenantID && e.rule.Enabled {
			out = append(out, e.rule)
		}
	}
	return out
}

// ListForScope returns the tenant's enabled rules applicable to the given
// sub-scope: tenant-wide rules (no scope) plus rules scoped exactly to it.
func (s *Store) ListForScope(tenantID types.TenantID, scopeID types.ScopeID) []*types.AutomationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.AutomationRule
	for _, e := range s.ordered {
		r := e.rule
		if r.TenantID != tenantID || !r.Enabled {
			continue
		}
		if r.ScopeID == "" || r.ScopeID == scopeID {
			out = append(out, r)
		}
	}
	return out
}

// All returns every stored rule (enabled or not) in priority order.
// Used by persistence write-through and the management API.
func (s *Store) All() []types.AutomationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AutomationRule, 0, len(s.ordered))
	for _, e := range s.ordered {
		out = append(out, *e.rule)
	}
	return out
}

// Len returns the number of stored rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// RecordTriggered increments the rule's triggered counter.
func (s *Store) RecordTriggered(id types.RuleID) {
	s.bump(id, func(st *types.RuleStats) { st.Triggered++ })
}

// RecordExecuted increments the rule's executed counter.
func (s *Store) RecordExecuted(id types.RuleID) {
	s.bump(id, func(st *types.RuleStats) { st.Executed++ })
}

// RecordUndone increments the rule's undone counter.
func (s *Store) RecordUndone(id types.RuleID) {
	s.bump(id, func(st *types.RuleStats) { st.Undone++ })
}

func (s *Store) bump(id types.RuleID, f func(*types.RuleStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.byID[id]; ok {
		f(&entry.rule.Stats)
	}
}

// Reset drops all rules. Intended for tests and engine disposal.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[types.RuleID]*storeEntry)
	s.ordered = nil
	s.nextSeq = 0
}

package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hirepilot/hirepilot/internal/types"
)

// ErrDecisionNotFound is returned when a decision lookup finds no row.
var ErrDecisionNotFound = errors.New("decision not found")

// Repository persists engine state. The in-memory engine remains the
// source of truth at runtime; the repository is a write-through layer
// that survives restarts.
type Repository struct {
	q *Queries
}

func NewRepository(q *Queries) *Repository {
	return &Repository{q: q}
}

type ruleRow struct {
	RuleID        string `db:"rule_id"`
	TenantID      string `db:"tenant_id"`
	ScopeID       string `db:"scope_id"`
	Name          string `db:"name"`
	Description   string `db:"description"`
	Condition     string `db:"condition"`
	Action        string `db:"action"`
	AutonomyLevel string `db:"autonomy_level"`
	Priority      int    `db:"priority"`
	Enabled       bool   `db:"enabled"`
	Triggered     int64  `db:"triggered"`
	Executed      int64  `db:"executed"`
	Undone        int64  `db:"undone"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

// DecisionRecord is the persisted form of a decision handed back to
// API clients, including undo bookkeeping.
type DecisionRecord struct {
	DecisionID  string         `db:"decision_id"`
	TenantID    string         `db:"tenant_id"`
	ScopeID     string         `db:"scope_id"`
	CandidateID string         `db:"candidate_id"`
	RuleID      string         `db:"rule_id"`
	RuleName    string         `db:"rule_name"`
	Status      string         `db:"status"`
	Action      string         `db:"action"`
	Explanation string         `db:"explanation"`
	Executed    bool           `db:"executed"`
	ExecutedAt  sql.NullString `db:"executed_at"`
	Undone      bool           `db:"undone"`
	CreatedAt   string         `db:"created_at"`
}

// ExecutedTime parses the stored execution timestamp. Returns the zero
// time when the decision never executed.
func (d *DecisionRecord) ExecutedTime() (time.Time, error) {
	if !d.ExecutedAt.Valid {
		return time.Time{}, nil
	}
	return parseTime(d.ExecutedAt.String)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// SaveRule writes a rule through to storage, inserting or replacing by
// rule ID.
func (r *Repository) SaveRule(rule *types.AutomationRule) error {
	condJSON, err := types.MarshalCondition(rule.Condition)
	if err != nil {
		return fmt.Errorf("encoding rule condition: %w", err)
	}
	actionJSON, err := json.Marshal(rule.Action)
	if err != nil {
		return fmt.Errorf("encoding rule action: %w", err)
	}

	_, err = r.q.Exec("upsert-rule",
		string(rule.ID), string(rule.TenantID), string(rule.ScopeID),
		rule.Name, rule.Description, string(condJSON), string(actionJSON),
		string(rule.AutonomyLevel), rule.Priority, rule.Enabled,
		rule.Stats.Triggered, rule.Stats.Executed, rule.Stats.Undone,
		fmtTime(rule.CreatedAt), fmtTime(rule.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving rule %s: %w", rule.ID, err)
	}
	return nil
}

func (r *Repository) DeleteRule(id types.RuleID) error {
	if _, err := r.q.Exec("delete-rule", string(id)); err != nil {
		return fmt.Errorf("deleting rule %s: %w", id, err)
	}
	return nil
}

func (r *Repository) SetRuleEnabled(id types.RuleID, enabled bool, now time.Time) error {
	if _, err := r.q.Exec("set-rule-enabled", enabled, fmtTime(now), string(id)); err != nil {
		return fmt.Errorf("updating rule %s enabled flag: %w", id, err)
	}
	return nil
}

func (r *Repository) SaveRuleStats(rule *types.AutomationRule, now time.Time) error {
	_, err := r.q.Exec("update-rule-stats",
		rule.Stats.Triggered, rule.Stats.Executed, rule.Stats.Undone,
		fmtTime(now), string(rule.ID))
	if err != nil {
		return fmt.Errorf("updating rule %s stats: %w", rule.ID, err)
	}
	return nil
}

// LoadRules reads every stored rule in priority order, decoding the
// condition and action payloads. Used to hydrate the engine at startup.
func (r *Repository) LoadRules() ([]*types.AutomationRule, error) {
	var rows []ruleRow
	if err := r.q.Select("list-rules", &rows); err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}

	rules := make([]*types.AutomationRule, 0, len(rows))
	for _, row := range rows {
		rule, err := hydrateRule(row)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func hydrateRule(row ruleRow) (*types.AutomationRule, error) {
	cond, err := types.UnmarshalCondition([]byte(row.Condition))
	if err != nil {
		return nil, fmt.Errorf("decoding condition for rule %s: %w", row.RuleID, err)
	}
	var action types.RuleAction
	if err := json.Unmarshal([]byte(row.Action), &action); err != nil {
		return nil, fmt.Errorf("decoding action for rule %s: %w", row.RuleID, err)
	}
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("rule %s created_at: %w", row.RuleID, err)
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("rule %s updated_at: %w", row.RuleID, err)
	}

	return &types.AutomationRule{
		ID:            types.RuleID(row.RuleID),
		TenantID:      types.TenantID(row.TenantID),
		ScopeID:       types.ScopeID(row.ScopeID),
		Name:          row.Name,
		Description:   row.Description,
		Condition:     cond,
		Action:        action,
		AutonomyLevel: types.AutonomyLevel(row.AutonomyLevel),
		Priority:      row.Priority,
		Enabled:       row.Enabled,
		Stats: types.RuleStats{
			Triggered: row.Triggered,
			Executed:  row.Executed,
			Undone:    row.Undone,
		},
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (r *Repository) SaveApproval(a *types.PendingApproval) error {
	actionJSON, err := json.Marshal(a.Action)
	if err != nil {
		return fmt.Errorf("encoding approval action: %w", err)
	}
	_, err = r.q.Exec("insert-approval",
		string(a.ID), string(a.TenantID), string(a.RuleID), a.RuleName,
		string(a.CandidateID), string(actionJSON), a.Explanation,
		string(a.Status), fmtTime(a.CreatedAt), fmtTime(a.ExpiresAt))
	if err != nil {
		return fmt.Errorf("saving approval %s: %w", a.ID, err)
	}
	return nil
}

// ResolveApproval records a terminal status for a pending approval.
// Resolving an already-terminal approval is a no-op at this layer; the
// engine is authoritative for lifecycle errors.
func (r *Repository) ResolveApproval(id types.ApprovalID, status types.ApprovalStatus, now time.Time) error {
	if _, err := r.q.Exec("resolve-approval", string(status), fmtTime(now), string(id)); err != nil {
		return fmt.Errorf("resolving approval %s: %w", id, err)
	}
	return nil
}

// ExpireApprovals marks every pending approval past its deadline as
// expired. The approvals listing calls it so stored rows keep pace with
// the in-memory lazy expiry.
func (r *Repository) ExpireApprovals(now time.Time) error {
	if _, err := r.q.Exec("expire-approvals", fmtTime(now), fmtTime(now)); err != nil {
		return fmt.Errorf("expiring approvals: %w", err)
	}
	return nil
}

func (r *Repository) InsertDecision(d *DecisionRecord) error {
	_, err := r.q.Exec("insert-decision",
		d.DecisionID, d.TenantID, d.ScopeID, d.CandidateID, d.RuleID, d.RuleName,
		d.Status, d.Action, d.Explanation, d.Executed, d.ExecutedAt, d.Undone,
		d.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving decision %s: %w", d.DecisionID, err)
	}
	return nil
}

func (r *Repository) GetDecision(id types.DecisionID) (*DecisionRecord, error) {
	var d DecisionRecord
	if err := r.q.Get("get-decision", &d, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("loading decision %s: %w", id, err)
	}
	return &d, nil
}

func (r *Repository) MarkDecisionUndone(id types.DecisionID) error {
	if _, err := r.q.Exec("mark-decision-undone", true, string(id)); err != nil {
		return fmt.Errorf("marking decision %s undone: %w", id, err)
	}
	return nil
}

package db

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hirepilot/hirepilot/internal/types"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()

	database, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	// One connection only: each sqlite :memory: connection is its own database.
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	if err := MigrateUp(database); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	queries, err := LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	return NewRepository(queries)
}

func storedRule() *types.AutomationRule {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &types.AutomationRule{
		ID:       types.NewRuleID(),
		TenantID: "acme",
		Name:     "invite strong fits",
		Condition: types.CompositeCondition{
			Type: types.CompositeAnd,
			Conditions: []types.Condition{
				types.FieldCondition{Field: types.FieldFitScore, Operator: types.OpGte, Value: 70.0},
				types.FieldCondition{Field: types.FieldSkills, Operator: types.OpContains, Value: []string{"go"}},
			},
		},
		Action:        types.RuleAction{Type: types.ActionInvite, Params: map[string]string{types.ParamMessageTemplate: "hi"}},
		AutonomyLevel: types.AutonomyAutonomous,
		Priority:      10,
		Enabled:       true,
		Stats:         types.RuleStats{Triggered: 3, Executed: 2},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestRepository_SaveAndLoadRules(t *testing.T) {
	repo := testRepo(t)
	rule := storedRule()

	if err := repo.SaveRule(rule); err != nil {
		t.Fatalf("SaveRule() error = %v", err)
	}

	loaded, err := repo.LoadRules()
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("LoadRules() returned %d rules, want 1", len(loaded))
	}

	got := loaded[0]
	if got.ID != rule.ID || got.TenantID != rule.TenantID || got.Name != rule.Name {
		t.Errorf("loaded rule identity = %+v, want %+v", got, rule)
	}
	if got.Priority != 10 || !got.Enabled || got.AutonomyLevel != types.AutonomyAutonomous {
		t.Errorf("loaded rule policy fields differ: %+v", got)
	}
	if got.Stats.Triggered != 3 || got.Stats.Executed != 2 {
		t.Errorf("loaded stats = %+v, want triggered=3 executed=2", got.Stats)
	}
	if !got.CreatedAt.Equal(rule.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rule.CreatedAt)
	}

	composite, ok := got.Condition.(types.CompositeCondition)
	if !ok || composite.Type != types.CompositeAnd || len(composite.Conditions) != 2 {
		t.Fatalf("loaded condition = %+v, want the original AND tree", got.Condition)
	}
	if tpl, _ := got.Action.Param(types.ParamMessageTemplate); tpl != "hi" {
		t.Errorf("action param lost through storage: %+v", got.Action)
	}
}

func TestRepository_SaveRuleUpserts(t *testing.T) {
	repo := testRepo(t)
	rule := storedRule()
	if err := repo.SaveRule(rule); err != nil {
		t.Fatalf("SaveRule() error = %v", err)
	}

	rule.Name = "renamed"
	rule.Priority = 99
	if err := repo.SaveRule(rule); err != nil {
		t.Fatalf("SaveRule() upsert error = %v", err)
	}

	loaded, err := repo.LoadRules()
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("LoadRules() returned %d rules, want 1 after upsert", len(loaded))
	}
	if loaded[0].Name != "renamed" || loaded[0].Priority != 99 {
		t.Errorf("upsert did not replace content: %+v", loaded[0])
	}
}

func TestRepository_LoadRulesPriorityOrder(t *testing.T) {
	repo := testRepo(t)
	for _, p := range []int{10, 5, 20} {
		rule := storedRule()
		rule.ID = types.NewRuleID()
		rule.Priority = p
		if err := repo.SaveRule(rule); err != nil {
			t.Fatalf("SaveRule() error = %v", err)
		}
	}

	loaded, err := repo.LoadRules()
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	want := []int{20, 10, 5}
	for i, rule := range loaded {
		if rule.Priority != want[i] {
			t.Fatalf("priority at %d = %d, want %d", i, rule.Priority, want[i])
		}
	}
}

func TestRepository_DeleteAndToggleRule(t *testing.T) {
	repo := testRepo(t)
	rule := storedRule()
	if err := repo.SaveRule(rule); err != nil {
		t.Fatalf("SaveRule() error = %v", err)
	}

	if err := repo.SetRuleEnabled(rule.ID, false, time.Now().UTC()); err != nil {
		t.Fatalf("SetRuleEnabled() error = %v", err)
	}
	loaded, _ := repo.LoadRules()
	if len(loaded) != 1 || loaded[0].Enabled {
		t.Errorf("rule still enabled after toggle: %+v", loaded)
	}

	if err := repo.DeleteRule(rule.ID); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	loaded, _ = repo.LoadRules()
	if len(loaded) != 0 {
		t.Errorf("LoadRules() after delete returned %d rules, want 0", len(loaded))
	}
}

func TestRepository_ApprovalLifecycle(t *testing.T) {
	repo := testRepo(t)
	now := time.Now().UTC()
	approval := &types.PendingApproval{
		ID:          types.NewApprovalID(),
		TenantID:    "acme",
		RuleID:      types.NewRuleID(),
		RuleName:    "needs signoff",
		CandidateID: "cand-1",
		Action:      types.RuleAction{Type: types.ActionReject},
		Explanation: "low scores",
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
		Status:      types.ApprovalPending,
	}

	if err := repo.SaveApproval(approval); err != nil {
		t.Fatalf("SaveApproval() error = %v", err)
	}
	if err := repo.ResolveApproval(approval.ID, types.ApprovalApproved, now.Add(time.Minute)); err != nil {
		t.Fatalf("ResolveApproval() error = %v", err)
	}
	// Resolving again is a silent no-op: the row is already terminal.
	if err := repo.ResolveApproval(approval.ID, types.ApprovalRejected, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("ResolveApproval() second call error = %v", err)
	}
}

func TestRepository_DecisionLifecycle(t *testing.T) {
	repo := testRepo(t)
	now := time.Now().UTC()
	record := &DecisionRecord{
		DecisionID:  string(types.NewDecisionID()),
		TenantID:    "acme",
		CandidateID: "cand-1",
		RuleID:      string(types.NewRuleID()),
		RuleName:    "auto-invite",
		Status:      string(types.StatusExecuted),
		Action:      `{"type":"invite"}`,
		Explanation: "matched",
		Executed:    true,
		ExecutedAt:  sql.NullString{String: now.Format(time.RFC3339Nano), Valid: true},
		CreatedAt:   now.Format(time.RFC3339Nano),
	}

	if err := repo.InsertDecision(record); err != nil {
		t.Fatalf("InsertDecision() error = %v", err)
	}

	got, err := repo.GetDecision(types.DecisionID(record.DecisionID))
	if err != nil {
		t.Fatalf("GetDecision() error = %v", err)
	}
	if got.RuleName != "auto-invite" || !got.Executed || got.Undone {
		t.Errorf("GetDecision() = %+v, want executed, not undone", got)
	}
	executedAt, err := got.ExecutedTime()
	if err != nil {
		t.Fatalf("ExecutedTime() error = %v", err)
	}
	if !executedAt.Equal(now) {
		t.Errorf("ExecutedTime() = %v, want %v", executedAt, now)
	}

	if err := repo.MarkDecisionUndone(types.DecisionID(record.DecisionID)); err != nil {
		t.Fatalf("MarkDecisionUndone() error = %v", err)
	}
	got, err = repo.GetDecision(types.DecisionID(record.DecisionID))
	if err != nil {
		t.Fatalf("GetDecision() after undo error = %v", err)
	}
	if !got.Undone {
		t.Errorf("Undone = false after MarkDecisionUndone")
	}
}

func TestRepository_GetDecisionNotFound(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.GetDecision("missing")
	if !errors.Is(err, ErrDecisionNotFound) {
		t.Fatalf("GetDecision() error = %v, want ErrDecisionNotFound", err)
	}
}

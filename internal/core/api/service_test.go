package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hirepilot/hirepilot/internal/core/auth"
	"github.com/hirepilot/hirepilot/internal/core/config"
	"github.com/hirepilot/hirepilot/internal/core/db"
	"github.com/hirepilot/hirepilot/internal/engine"
	"github.com/hirepilot/hirepilot/internal/types"
)

type testHarness struct {
	service  *Service
	engine   *engine.Engine
	repo     *db.Repository
	router   chi.Router
	database *sqlx.DB
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	database, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })
	if err := db.MigrateUp(database); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	repo := db.NewRepository(queries)

	eng := engine.New(engine.Options{MaxActionsPerHour: 10, SweepInterval: time.Hour})
	t.Cleanup(eng.Close)

	cfg := config.DefaultServiceConfig()
	service, err := NewService(eng, repo, cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	router := chi.NewRouter()
	service.Routes(router)

	return &testHarness{service: service, engine: eng, repo: repo, router: router, database: database}
}

// do issues a request as the given tenant, bypassing the HMAC middleware.
func (h *testHarness) do(t *testing.T, tenant, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(auth.ContextWithTenantID(req.Context(), tenant))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func inviteRule(level types.AutonomyLevel) map[string]any {
	return map[string]any{
		"name":          "invite strong fits",
		"condition":     map[string]any{"field": "fitScore", "operator": ">=", "value": 70},
		"action":        map[string]any{"type": "invite"},
		"autonomyLevel": string(level),
		"priority":      10,
		"enabled":       true,
	}
}

func TestCreateRule(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyAutonomous))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/rules status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var created types.AutomationRule
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if created.ID == "" {
		t.Errorf("created rule has no id")
	}
	if created.TenantID != "acme" {
		t.Errorf("TenantID = %q, want the authenticated tenant", created.TenantID)
	}

	// Write-through: the rule must be loadable from storage.
	stored, err := h.repo.LoadRules()
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(stored) != 1 || stored[0].ID != created.ID {
		t.Errorf("stored rules = %+v, want the created rule", stored)
	}
}

func TestCreateRule_ValidationFailure(t *testing.T) {
	h := newHarness(t)

	bad := inviteRule(types.AutonomyAdvise)
	bad["condition"] = map[string]any{"field": "fitScore", "operator": "contains", "value": "x"}

	rec := h.do(t, "acme", http.MethodPost, "/v1/rules", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body)
	}
	if len(h.engine.Rules()) != 0 {
		t.Errorf("invalid rule was stored")
	}
}

func TestCreateRule_PersistFailureRollsBack(t *testing.T) {
	t.Run("failed update keeps the prior rule", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyAdvise))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
		}
		var created types.AutomationRule
		_ = json.Unmarshal(rec.Body.Bytes(), &created)

		h.database.Close()

		update := inviteRule(types.AutonomyAdvise)
		update["id"] = string(created.ID)
		update["name"] = "renamed"
		rec = h.do(t, "acme", http.MethodPost, "/v1/rules", update)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("update status = %d, want 503: %s", rec.Code, rec.Body)
		}

		rule, found := h.engine.GetRule(created.ID)
		if !found {
			t.Fatalf("rule %s vanished from the engine after a failed update persist", created.ID)
		}
		if rule.Name != created.Name {
			t.Errorf("Name = %q, want prior %q restored", rule.Name, created.Name)
		}
	})

	t.Run("failed create removes the rule", func(t *testing.T) {
		h := newHarness(t)
		h.database.Close()

		rec := h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyAdvise))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("create status = %d, want 503: %s", rec.Code, rec.Body)
		}
		if len(h.engine.Rules()) != 0 {
			t.Errorf("unpersisted rule left in the engine")
		}
	})
}

func TestRuleCRUD_TenantIsolation(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyAdvise))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created types.AutomationRule
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	if rec := h.do(t, "rival", http.MethodGet, "/v1/rules/"+string(created.ID), nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign GET status = %d, want 404", rec.Code)
	}
	if rec := h.do(t, "rival", http.MethodDelete, "/v1/rules/"+string(created.ID), nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign DELETE status = %d, want 404", rec.Code)
	}
	foreign := inviteRule(types.AutonomyAdvise)
	foreign["id"] = string(created.ID)
	if rec := h.do(t, "rival", http.MethodPost, "/v1/rules", foreign); rec.Code != http.StatusNotFound {
		t.Errorf("foreign upsert status = %d, want 404", rec.Code)
	}

	var listing struct {
		Rules []types.AutomationRule `json:"rules"`
	}
	rec = h.do(t, "rival", http.MethodGet, "/v1/rules", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &listing)
	if len(listing.Rules) != 0 {
		t.Errorf("foreign tenant sees %d rules, want 0", len(listing.Rules))
	}

	if rec := h.do(t, "acme", http.MethodDelete, "/v1/rules/"+string(created.ID), nil); rec.Code != http.StatusNoContent {
		t.Errorf("owner DELETE status = %d, want 204", rec.Code)
	}
}

func TestDecide_AutonomousExecutes(t *testing.T) {
	h := newHarness(t)
	h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyAutonomous))

	rec := h.do(t, "acme", http.MethodPost, "/v1/decisions", map[string]any{
		"candidate": map[string]any{"id": "cand-1", "fitScore": 85, "resumeScore": 70},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /v1/decisions status = %d: %s", rec.Code, rec.Body)
	}

	var resp DecideResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(resp.Decisions))
	}
	d := resp.Decisions[0]
	if !d.Matched || d.Status != types.StatusExecuted || d.RateLimited {
		t.Errorf("decision = %+v, want matched executed not rate-limited", d)
	}
	if d.DecisionID == "" {
		t.Errorf("matched decision has no id")
	}
	if resp.RemainingBudget != 9 {
		t.Errorf("RemainingBudget = %d, want 9", resp.RemainingBudget)
	}

	record, err := h.repo.GetDecision(d.DecisionID)
	if err != nil {
		t.Fatalf("GetDecision() error = %v", err)
	}
	if !record.Executed || !record.ExecutedAt.Valid {
		t.Errorf("persisted decision = %+v, want executed with timestamp", record)
	}
}

func TestDecide_RateLimited(t *testing.T) {
	h := newHarness(t)
	h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyAutonomous))

	// Spend the whole budget out of band.
	for i := 0; i < 10; i++ {
		h.engine.RecordExecution("acme", "")
	}

	rec := h.do(t, "acme", http.MethodPost, "/v1/decisions", map[string]any{
		"candidate": map[string]any{"id": "cand-2", "fitScore": 90, "resumeScore": 70},
	})
	var resp DecideResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(resp.Decisions))
	}
	d := resp.Decisions[0]
	if !d.RateLimited {
		t.Errorf("RateLimited = false, want true with spent budget")
	}
	if d.Status != types.StatusExecuted {
		t.Errorf("Status = %v, want executed: the verdict stands, the execution is withheld", d.Status)
	}

	record, err := h.repo.GetDecision(d.DecisionID)
	if err != nil {
		t.Fatalf("GetDecision() error = %v", err)
	}
	if record.Executed {
		t.Errorf("rate-limited decision persisted as executed")
	}
}

func TestDecide_ConfirmAndApprove(t *testing.T) {
	h := newHarness(t)
	h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyConfirm))

	rec := h.do(t, "acme", http.MethodPost, "/v1/decisions", map[string]any{
		"candidate": map[string]any{"id": "cand-3", "fitScore": 80, "resumeScore": 70},
	})
	var resp DecideResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Decisions) != 1 || resp.Decisions[0].Status != types.StatusPendingApproval {
		t.Fatalf("decisions = %+v, want one pending_approval", resp.Decisions)
	}
	approvalID := resp.Decisions[0].ApprovalID
	if approvalID == "" {
		t.Fatalf("no approval id on pending decision")
	}

	var listing struct {
		Approvals []types.PendingApproval `json:"approvals"`
	}
	rec = h.do(t, "acme", http.MethodGet, "/v1/approvals", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &listing)
	if len(listing.Approvals) != 1 || listing.Approvals[0].ID != approvalID {
		t.Fatalf("approvals listing = %+v, want the opened approval", listing.Approvals)
	}

	// A foreign tenant cannot resolve it.
	if rec := h.do(t, "rival", http.MethodPost, "/v1/approvals/"+string(approvalID)+"/approve", nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign approve status = %d, want 404", rec.Code)
	}

	rec = h.do(t, "acme", http.MethodPost, "/v1/approvals/"+string(approvalID)+"/approve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d: %s", rec.Code, rec.Body)
	}
	var resolved types.PendingApproval
	_ = json.Unmarshal(rec.Body.Bytes(), &resolved)
	if resolved.Status != types.ApprovalApproved {
		t.Errorf("Status = %v, want approved", resolved.Status)
	}

	// Second resolution fails: the approval is terminal.
	if rec := h.do(t, "acme", http.MethodPost, "/v1/approvals/"+string(approvalID)+"/reject", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second resolve status = %d, want 404", rec.Code)
	}

	// Approved execution bypasses the autonomous budget.
	if budget := h.engine.RemainingBudget("acme"); budget != 10 {
		t.Errorf("RemainingBudget = %d, want untouched 10", budget)
	}
}

func TestUndo(t *testing.T) {
	h := newHarness(t)
	h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyAutonomous))

	rec := h.do(t, "acme", http.MethodPost, "/v1/decisions", map[string]any{
		"candidate": map[string]any{"id": "cand-4", "fitScore": 95, "resumeScore": 70},
	})
	var resp DecideResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	decisionID := resp.Decisions[0].DecisionID

	undoPath := fmt.Sprintf("/v1/decisions/%s/undo", decisionID)

	if rec := h.do(t, "rival", http.MethodPost, undoPath, nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign undo status = %d, want 404", rec.Code)
	}

	rec = h.do(t, "acme", http.MethodPost, undoPath, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo status = %d: %s", rec.Code, rec.Body)
	}

	record, err := h.repo.GetDecision(decisionID)
	if err != nil {
		t.Fatalf("GetDecision() error = %v", err)
	}
	if !record.Undone {
		t.Errorf("decision not marked undone")
	}

	rule, _ := h.engine.GetRule(types.RuleID(record.RuleID))
	if rule.Stats.Undone != 1 {
		t.Errorf("Stats.Undone = %d, want 1", rule.Stats.Undone)
	}

	if rec := h.do(t, "acme", http.MethodPost, undoPath, nil); rec.Code != http.StatusConflict {
		t.Errorf("second undo status = %d, want 409", rec.Code)
	}
}

func TestUndo_NeverExecuted(t *testing.T) {
	h := newHarness(t)
	h.do(t, "acme", http.MethodPost, "/v1/rules", inviteRule(types.AutonomyAdvise))

	rec := h.do(t, "acme", http.MethodPost, "/v1/decisions", map[string]any{
		"candidate": map[string]any{"id": "cand-5", "fitScore": 95, "resumeScore": 70},
	})
	var resp DecideResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	decisionID := resp.Decisions[0].DecisionID

	rec = h.do(t, "acme", http.MethodPost, fmt.Sprintf("/v1/decisions/%s/undo", decisionID), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("undo of advised decision status = %d, want 409", rec.Code)
	}
}

func TestDecide_RequiresCandidateID(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, "acme", http.MethodPost, "/v1/decisions", map[string]any{
		"candidate": map[string]any{"fitScore": 95},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without candidate id", rec.Code)
	}
}

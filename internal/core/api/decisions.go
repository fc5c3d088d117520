package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hirepilot/hirepilot/internal/core/db"
	"github.com/hirepilot/hirepilot/internal/engine"
	"github.com/hirepilot/hirepilot/internal/types"
)

// DecideRequest carries one candidate snapshot for evaluation, optionally
// narrowed to a single vacancy.
type DecideRequest struct {
	Candidate types.CandidateSnapshot `json:"candidate"`
	ScopeID   types.ScopeID           `json:"scopeId,omitempty"`
}

// DecisionResponse is one rule outcome. DecisionID is set for matches only;
// RateLimited marks an autonomous match that was withheld because the
// tenant's hourly budget ran out.
type DecisionResponse struct {
	DecisionID  types.DecisionID `json:"decisionId,omitempty"`
	RateLimited bool             `json:"rateLimited,omitempty"`
	engine.Decision
}

// DecideResponse is the full evaluation outcome for one snapshot.
type DecideResponse struct {
	CandidateID     types.CandidateID  `json:"candidateId"`
	Decisions       []DecisionResponse `json:"decisions"`
	RemainingBudget int                `json:"remainingBudget"`
}

// handleDecide applies the tenant's rules to a candidate snapshot and acts on
// the engine's verdicts: autonomous matches execute immediately (budget
// permitting), confirm matches have already opened an approval, advise
// matches pass through. Every matched decision is persisted.
func (s *Service) handleDecide(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Candidate.ID == "" {
		respondError(w, http.StatusBadRequest, "candidate.id is required")
		return
	}

	now := time.Now().UTC()
	decisions := s.engine.Decide(&req.Candidate, tenantID, req.ScopeID)

	resp := DecideResponse{
		CandidateID: req.Candidate.ID,
		Decisions:   make([]DecisionResponse, 0, len(decisions)),
	}

	for _, d := range decisions {
		item := DecisionResponse{Decision: d}

		if d.Matched {
			record := &db.DecisionRecord{
				DecisionID:  string(types.NewDecisionID()),
				TenantID:    string(tenantID),
				ScopeID:     string(req.ScopeID),
				CandidateID: string(req.Candidate.ID),
				RuleID:      string(d.RuleID),
				RuleName:    d.RuleName,
				Status:      string(d.Status),
				Explanation: d.Explanation,
				CreatedAt:   now.Format(time.RFC3339Nano),
			}
			if d.Action != nil {
				actionJSON, err := json.Marshal(d.Action)
				if err != nil {
					respondError(w, http.StatusInternalServerError, "encoding action: %v", err)
					return
				}
				record.Action = string(actionJSON)
			}

			switch d.Status {
			case types.StatusExecuted:
				if s.engine.CanExecute(tenantID) {
					s.engine.RecordExecution(tenantID, d.RuleID)
					record.Executed = true
					record.ExecutedAt = sql.NullString{String: now.Format(time.RFC3339Nano), Valid: true}
					s.logger.Printf("executed action %s for candidate %s (rule %s, tenant %s)",
						d.Action.Type, req.Candidate.ID, d.RuleID, tenantID)
				} else {
					item.RateLimited = true
					s.logger.Printf("budget exhausted for tenant %s: withheld action for candidate %s (rule %s)",
						tenantID, req.Candidate.ID, d.RuleID)
				}
			case types.StatusPendingApproval:
				if approval := s.engine.GetApproval(d.ApprovalID); approval != nil {
					if err := s.repo.SaveApproval(approval); err != nil {
						s.logger.Printf("persisting approval %s: %v", approval.ID, err)
					}
				}
			}

			if err := s.repo.InsertDecision(record); err != nil {
				respondError(w, http.StatusServiceUnavailable, "persisting decision: %v", err)
				return
			}
			item.DecisionID = types.DecisionID(record.DecisionID)
			s.persistRuleStats(d.RuleID, now)
		}

		resp.Decisions = append(resp.Decisions, item)
	}

	resp.RemainingBudget = s.engine.RemainingBudget(tenantID)
	respondJSON(w, http.StatusOK, resp)
}

// handleUndo reverses an executed decision inside the undo window and bumps
// the rule's undone counter.
func (s *Service) handleUndo(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	decisionID := types.DecisionID(chi.URLParam(r, "decisionID"))
	record, err := s.repo.GetDecision(decisionID)
	if errors.Is(err, db.ErrDecisionNotFound) {
		respondError(w, http.StatusNotFound, "decision %s not found", decisionID)
		return
	}
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "loading decision: %v", err)
		return
	}
	if record.TenantID != string(tenantID) {
		// Cross-tenant probes see the same response as a missing id.
		respondError(w, http.StatusNotFound, "decision %s not found", decisionID)
		return
	}
	if !record.Executed {
		respondError(w, http.StatusConflict, "decision %s was never executed", decisionID)
		return
	}
	if record.Undone {
		respondError(w, http.StatusConflict, "decision %s already undone", decisionID)
		return
	}

	executedAt, err := record.ExecutedTime()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "decision %s: %v", decisionID, err)
		return
	}
	now := time.Now().UTC()
	if now.Sub(executedAt) > s.engine.UndoWindow() {
		respondError(w, http.StatusConflict, "undo window elapsed for decision %s", decisionID)
		return
	}

	if err := s.repo.MarkDecisionUndone(decisionID); err != nil {
		respondError(w, http.StatusServiceUnavailable, "marking decision undone: %v", err)
		return
	}
	s.engine.RecordUndo(types.RuleID(record.RuleID))
	s.persistRuleStats(types.RuleID(record.RuleID), now)
	s.logger.Printf("undid decision %s (rule %s, tenant %s)", decisionID, record.RuleID, tenantID)

	record.Undone = true
	respondJSON(w, http.StatusOK, record)
}

// persistRuleStats writes the rule's current counters through to storage.
// Counter drift on a failed write self-heals on the next successful one, so
// failures are logged rather than surfaced.
func (s *Service) persistRuleStats(ruleID types.RuleID, now time.Time) {
	if rule, ok := s.engine.GetRule(ruleID); ok {
		if err := s.repo.SaveRuleStats(&rule, now); err != nil {
			s.logger.Printf("persisting stats for rule %s: %v", ruleID, err)
		}
	}
}

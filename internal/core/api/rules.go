package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hirepilot/hirepilot/internal/types"
)

// handleCreateRule validates and stores a rule for the authenticated tenant.
// Sending an existing rule id upserts; stats and creation time survive the
// update. The tenant in the body is ignored in favor of the authenticated one.
func (s *Service) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	var rule types.AutomationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule body: %v", err)
		return
	}
	rule.TenantID = tenantID

	prior, existed := s.engine.GetRule(rule.ID)
	if existed && prior.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "rule %s not found", rule.ID)
		return
	}

	if err := s.engine.AddRule(&rule); err != nil {
		if types.IsValidation(err) {
			respondError(w, http.StatusBadRequest, "invalid rule: %v", err)
		} else {
			respondError(w, http.StatusInternalServerError, "storing rule: %v", err)
		}
		return
	}

	if err := s.repo.SaveRule(&rule); err != nil {
		// Put the engine back the way storage still has it: restore the
		// prior content for an update, remove the rule for a create.
		if existed {
			restored := prior
			if rerr := s.engine.AddRule(&restored); rerr != nil {
				s.logger.Printf("restoring rule %s after failed persist: %v", rule.ID, rerr)
			}
		} else {
			s.engine.RemoveRule(rule.ID)
		}
		respondError(w, http.StatusServiceUnavailable, "persisting rule: %v", err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

// handleListRules returns the tenant's rules in priority order, disabled
// ones included. Listing is a management view, not a matching view.
func (s *Service) handleListRules(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	all := s.engine.Rules()
	rules := make([]types.AutomationRule, 0, len(all))
	for _, rule := range all {
		if rule.TenantID == tenantID {
			rules = append(rules, rule)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *Service) handleGetRule(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	ruleID := types.RuleID(chi.URLParam(r, "ruleID"))
	rule, found := s.engine.GetRule(ruleID)
	if !found || rule.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "rule %s not found", ruleID)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (s *Service) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	ruleID := types.RuleID(chi.URLParam(r, "ruleID"))
	rule, found := s.engine.GetRule(ruleID)
	if !found || rule.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "rule %s not found", ruleID)
		return
	}

	s.engine.RemoveRule(ruleID)
	if err := s.repo.DeleteRule(ruleID); err != nil {
		respondError(w, http.StatusServiceUnavailable, "deleting rule: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateRuleEnabled toggles a rule on or off without re-validating it.
func (s *Service) handleUpdateRuleEnabled(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	ruleID := types.RuleID(chi.URLParam(r, "ruleID"))
	rule, found := s.engine.GetRule(ruleID)
	if !found || rule.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "rule %s not found", ruleID)
		return
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "body must carry an enabled flag")
		return
	}

	now := time.Now().UTC()
	s.engine.SetRuleEnabled(ruleID, *req.Enabled)
	if err := s.repo.SetRuleEnabled(ruleID, *req.Enabled, now); err != nil {
		respondError(w, http.StatusServiceUnavailable, "persisting rule state: %v", err)
		return
	}

	rule, _ = s.engine.GetRule(ruleID)
	respondJSON(w, http.StatusOK, rule)
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hirepilot/hirepilot/internal/types"
)

// handleListApprovals returns the tenant's still-pending approvals, expired
// ones swept out first.
func (s *Service) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	approvals := s.engine.PendingApprovals(tenantID)
	if err := s.repo.ExpireApprovals(time.Now().UTC()); err != nil {
		s.logger.Printf("expiring persisted approvals: %v", err)
	}
	respondJSON(w, http.StatusOK, map[string]any{"approvals": approvals})
}

// handleApprove resolves a pending approval and executes its action. A
// human signed off, so the execution does not draw on the autonomous budget.
func (s *Service) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.resolveApproval(w, r, types.ApprovalApproved)
}

// handleReject resolves a pending approval without executing anything.
func (s *Service) handleReject(w http.ResponseWriter, r *http.Request) {
	s.resolveApproval(w, r, types.ApprovalRejected)
}

func (s *Service) resolveApproval(w http.ResponseWriter, r *http.Request, status types.ApprovalStatus) {
	tenantID, ok := tenantFromRequest(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "missing tenant in context")
		return
	}

	approvalID := types.ApprovalID(chi.URLParam(r, "approvalID"))

	// Tenant check before resolving: resolving is destructive, a foreign
	// tenant must not be able to burn another tenant's approval.
	if pending := s.engine.GetApproval(approvalID); pending == nil || pending.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "approval %s not found or no longer pending", approvalID)
		return
	}

	var resolved *types.PendingApproval
	if status == types.ApprovalApproved {
		resolved = s.engine.Approve(approvalID)
	} else {
		resolved = s.engine.Reject(approvalID)
	}
	if resolved == nil {
		// Lost the race against expiry or a concurrent resolution.
		respondError(w, http.StatusNotFound, "approval %s not found or no longer pending", approvalID)
		return
	}

	now := time.Now().UTC()
	if err := s.repo.ResolveApproval(approvalID, status, now); err != nil {
		s.logger.Printf("persisting approval %s resolution: %v", approvalID, err)
	}

	if status == types.ApprovalApproved {
		s.engine.RecordApprovedExecution(resolved.RuleID)
		s.persistRuleStats(resolved.RuleID, now)
		s.logger.Printf("approved action %s for candidate %s (rule %s, tenant %s)",
			resolved.Action.Type, resolved.CandidateID, resolved.RuleID, tenantID)
	} else {
		s.logger.Printf("rejected action %s for candidate %s (rule %s, tenant %s)",
			resolved.Action.Type, resolved.CandidateID, resolved.RuleID, tenantID)
	}

	respondJSON(w, http.StatusOK, resolved)
}

// Package api provides HTTP handlers for the hirepilot decision API.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hirepilot/hirepilot/internal/core/auth"
	"github.com/hirepilot/hirepilot/internal/core/config"
	"github.com/hirepilot/hirepilot/internal/core/db"
	"github.com/hirepilot/hirepilot/internal/engine"
	"github.com/hirepilot/hirepilot/internal/types"
)

// Service implements the decision API. Thin orchestration layer: the engine
// decides, the repository persists, handlers translate between the two and
// HTTP.
type Service struct {
	engine *engine.Engine
	repo   *db.Repository
	cfg    *config.ServiceConfig
	logger *log.Logger
}

// NewService creates a service instance with its dependencies.
func NewService(eng *engine.Engine, repo *db.Repository, cfg *config.ServiceConfig, logger *log.Logger) (*Service, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if repo == nil {
		return nil, fmt.Errorf("repo cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{engine: eng, repo: repo, cfg: cfg, logger: logger}, nil
}

// Routes registers the authenticated API surface on the router.
// Health is registered separately because it bypasses authentication.
func (s *Service) Routes(r chi.Router) {
	r.Post("/v1/decisions", s.handleDecide)
	r.Post("/v1/decisions/{decisionID}/undo", s.handleUndo)

	r.Post("/v1/rules", s.handleCreateRule)
	r.Get("/v1/rules", s.handleListRules)
	r.Get("/v1/rules/{ruleID}", s.handleGetRule)
	r.Delete("/v1/rules/{ruleID}", s.handleDeleteRule)
	r.Patch("/v1/rules/{ruleID}", s.handleUpdateRuleEnabled)

	r.Get("/v1/approvals", s.handleListApprovals)
	r.Post("/v1/approvals/{approvalID}/approve", s.handleApprove)
	r.Post("/v1/approvals/{approvalID}/reject", s.handleReject)
}

// HandleHealth reports liveness. Unauthenticated.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tenantFromRequest extracts the authenticated tenant. Auth middleware
// guarantees presence on every route it wraps; empty means a wiring bug.
func tenantFromRequest(r *http.Request) (types.TenantID, bool) {
	tenantID := auth.TenantIDFromContext(r.Context())
	return types.TenantID(tenantID), tenantID != ""
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, format string, args ...any) {
	respondJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

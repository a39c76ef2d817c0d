package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/streetconsensus/settlement/internal/api/middleware"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/repository"
	"github.com/streetconsensus/settlement/internal/service"
)

// GovernanceHandler serves the M-of-N signer surface: propose/confirm/
// execute a parameter change or a pause/unpause switch. Mounted on the
// governor admin API, behind SignerMiddleware.
type GovernanceHandler struct {
	govSvc         *service.GovernanceService
	governanceRepo *repository.GovernanceRepository
}

// NewGovernanceHandler creates a GovernanceHandler.
func NewGovernanceHandler(govSvc *service.GovernanceService, governanceRepo *repository.GovernanceRepository) *GovernanceHandler {
	return &GovernanceHandler{govSvc: govSvc, governanceRepo: governanceRepo}
}

// ProposeAction godoc
// POST /governor/actions [signer]
func (h *GovernanceHandler) ProposeAction(c *gin.Context) {
	var body struct {
		Kind string          `json:"kind" binding:"required"`
		Args json.RawMessage `json:"args"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	a, err := h.govSvc.ProposeAction(c.Request.Context(), middleware.GetAddress(c), domain.ActionKind(body.Kind), body.Args)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, a)
}

// ConfirmAction godoc
// POST /governor/actions/:id/confirm [signer]
func (h *GovernanceHandler) ConfirmAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ACTION_ID", "invalid action id")
		return
	}
	a, err := h.govSvc.ConfirmAction(c.Request.Context(), id, middleware.GetAddress(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, a)
}

// ExecuteAction godoc
// POST /governor/actions/:id/execute [signer]
func (h *GovernanceHandler) ExecuteAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ACTION_ID", "invalid action id")
		return
	}
	a, err := h.govSvc.ExecuteAction(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, a)
}

// ListPending godoc
// GET /governor/actions/pending [signer]
func (h *GovernanceHandler) ListPending(c *gin.Context) {
	actions, err := h.governanceRepo.ListPending(c.Request.Context())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, actions)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streetconsensus/settlement/internal/api/middleware"
	"github.com/streetconsensus/settlement/internal/mathx"
	"github.com/streetconsensus/settlement/internal/service"
)

// ResolutionHandler serves the Street-Consensus FSM endpoints: propose,
// dispute, vote, finalize, claim, emergency refund, creator fee claim.
type ResolutionHandler struct {
	resSvc *service.ResolutionService
}

// NewResolutionHandler creates a ResolutionHandler.
func NewResolutionHandler(resSvc *service.ResolutionService) *ResolutionHandler {
	return &ResolutionHandler{resSvc: resSvc}
}

// ProposeOutcome godoc
// POST /api/markets/:id/propose_outcome [JWT]
func (h *ResolutionHandler) ProposeOutcome(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	var body struct {
		Outcome bool       `json:"outcome"`
		Sent    mathx.U256 `json:"sent" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	m, err := h.resSvc.ProposeOutcome(c.Request.Context(), service.ProposeOutcomeInput{
		MarketID: marketID,
		Proposer: middleware.GetAddress(c),
		Outcome:  body.Outcome,
		Sent:     body.Sent,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, m)
}

// Dispute godoc
// POST /api/markets/:id/dispute [JWT]
func (h *ResolutionHandler) Dispute(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	var body struct {
		Bond mathx.U256 `json:"bond" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	m, err := h.resSvc.Dispute(c.Request.Context(), service.DisputeInput{
		MarketID: marketID,
		Disputer: middleware.GetAddress(c),
		Bond:     body.Bond,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, m)
}

// Vote godoc
// POST /api/markets/:id/vote [JWT]
func (h *ResolutionHandler) Vote(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	var body struct {
		Outcome bool `json:"outcome"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	m, err := h.resSvc.Vote(c.Request.Context(), marketID, middleware.GetAddress(c), body.Outcome)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, m)
}

// FinalizeMarket godoc
// POST /api/markets/:id/finalize [JWT]
func (h *ResolutionHandler) FinalizeMarket(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	m, err := h.resSvc.FinalizeMarket(c.Request.Context(), marketID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, m)
}

// Claim godoc
// POST /api/markets/:id/claim [JWT]
func (h *ResolutionHandler) Claim(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	amount, err := h.resSvc.Claim(c.Request.Context(), marketID, middleware.GetAddress(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"amount": amount.String()})
}

// EmergencyRefund godoc
// POST /api/markets/:id/emergency_refund [JWT]
func (h *ResolutionHandler) EmergencyRefund(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	amount, err := h.resSvc.EmergencyRefund(c.Request.Context(), marketID, middleware.GetAddress(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"amount": amount.String()})
}

// ClaimCreatorFees godoc
// POST /api/markets/:id/claim_creator_fees [JWT]
func (h *ResolutionHandler) ClaimCreatorFees(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	amount, err := h.resSvc.ClaimCreatorFees(c.Request.Context(), marketID, middleware.GetAddress(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"amount": amount.String()})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/streetconsensus/settlement/internal/api/middleware"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/service"
)

// LedgerHandler serves the pull-pattern withdraw/balance endpoints.
type LedgerHandler struct {
	ledgerSvc *service.LedgerService
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(ledgerSvc *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

func parseLedgerQuery(c *gin.Context) (domain.LedgerKind, uint64, error) {
	kind := domain.LedgerKind(c.Query("kind"))
	if kind == "" {
		kind = domain.LedgerWithdrawable
	}
	var marketID uint64
	if v := c.Query("market_id"); v != "" {
		var err error
		marketID, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return "", 0, err
		}
	}
	return kind, marketID, nil
}

// Balance godoc
// GET /api/ledger/balance?kind=withdrawable&market_id=1 [JWT]
func (h *LedgerHandler) Balance(c *gin.Context) {
	kind, marketID, err := parseLedgerQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	bal, err := h.ledgerSvc.Balance(c.Request.Context(), middleware.GetAddress(c), kind, marketID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"balance": bal.String()})
}

// Withdraw godoc
// POST /api/ledger/withdraw [JWT]
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	var body struct {
		Kind     string `json:"kind"`
		MarketID uint64 `json:"market_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	kind := domain.LedgerKind(body.Kind)
	if kind == "" {
		kind = domain.LedgerWithdrawable
	}

	amount, err := h.ledgerSvc.Withdraw(c.Request.Context(), middleware.GetAddress(c), kind, body.MarketID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"amount": amount.String()})
}

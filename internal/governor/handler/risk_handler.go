package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/repository"
)

// RiskHandler serves the governor's risk dashboard: markets that are
// active but past expiry, and markets approaching emergency-refund
// eligibility (spec §4.4's EMERGENCY_REFUND_DELAY window), so signers can
// anticipate which markets need a propose_outcome before the refund path
// opens up beneath them.
type RiskHandler struct {
	marketRepo *repository.MarketRepository
}

// NewRiskHandler creates a RiskHandler.
func NewRiskHandler(marketRepo *repository.MarketRepository) *RiskHandler {
	return &RiskHandler{marketRepo: marketRepo}
}

type riskMarket struct {
	MarketID                 uint64 `json:"market_id"`
	Question                 string `json:"question"`
	Status                   string `json:"status"`
	ExpiredSecondsAgo        int64  `json:"expired_seconds_ago"`
	EmergencyRefundInSeconds int64  `json:"emergency_refund_in_seconds"`
}

// ExpiringSoon godoc
// GET /governor/risk/expiring [signer]
//
// Lists every Active market whose expiry has already passed, ordered by
// how close each is to becoming emergency-refund eligible.
func (h *RiskHandler) ExpiringSoon(c *gin.Context) {
	now := time.Now().UTC()
	markets, err := h.marketRepo.GetExpiredActive(c.Request.Context(), now)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	out := make([]riskMarket, 0, len(markets))
	for _, m := range markets {
		deadline := m.ExpiryTS.Add(domain.EmergencyRefundDelay)
		out = append(out, riskMarket{
			MarketID:                 m.ID,
			Question:                 m.Question,
			Status:                   string(m.Status),
			ExpiredSecondsAgo:        int64(now.Sub(m.ExpiryTS).Seconds()),
			EmergencyRefundInSeconds: int64(deadline.Sub(now).Seconds()),
		})
	}
	respondSuccess(c, http.StatusOK, out)
}

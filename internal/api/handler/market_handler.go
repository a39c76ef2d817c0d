package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streetconsensus/settlement/internal/api/middleware"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/mathx"
	"github.com/streetconsensus/settlement/internal/service"
)

var errInvalidSide = errors.New("side must be \"yes\" or \"no\"")

// MarketHandler serves market creation, trading, and query endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
	viewSvc   *service.ViewService
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService, viewSvc *service.ViewService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc, viewSvc: viewSvc}
}

func parseSide(s string) (mathx.Side, error) {
	switch s {
	case "yes", "YES":
		return mathx.SideYes, nil
	case "no", "NO":
		return mathx.SideNo, nil
	default:
		return 0, errInvalidSide
	}
}

// ── create_market ───────────────────────────────────────────────────────────

type createMarketBody struct {
	Question string `json:"question" binding:"required"`
	Evidence string `json:"evidence"`
	Rules    string `json:"rules"`
	ImageURL string `json:"image_url"`
	ExpiryTS int64  `json:"expiry_ts" binding:"required"`
	Heat     string `json:"heat" binding:"required"`
}

func (b createMarketBody) toInput(creator string) service.CreateMarketInput {
	return service.CreateMarketInput{
		Creator:  creator,
		Question: b.Question,
		Evidence: b.Evidence,
		Rules:    b.Rules,
		ImageURL: b.ImageURL,
		ExpiryTS: time.Unix(b.ExpiryTS, 0),
		Heat:     domain.HeatLevel(b.Heat),
	}
}

// CreateMarket godoc
// POST /api/markets [JWT]
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	var body createMarketBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	m, err := h.marketSvc.CreateMarket(c.Request.Context(), body.toInput(middleware.GetAddress(c)))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, m)
}

// CreateMarketAndBuy godoc
// POST /api/markets/create_and_buy [JWT]
func (h *MarketHandler) CreateMarketAndBuy(c *gin.Context) {
	var body struct {
		createMarketBody
		Side         string     `json:"side" binding:"required"`
		BnbIn        mathx.U256 `json:"bnb_in" binding:"required"`
		MinSharesOut mathx.U256 `json:"min_shares_out"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	side, err := parseSide(body.Side)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SIDE", "side must be \"yes\" or \"no\"")
		return
	}

	m, pos, err := h.marketSvc.CreateMarketAndBuy(
		c.Request.Context(), body.toInput(middleware.GetAddress(c)), side, body.BnbIn, body.MinSharesOut)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"market": m, "position": pos})
}

// ── buy / sell ───────────────────────────────────────────────────────────────

// Buy godoc
// POST /api/markets/:id/buy [JWT]
func (h *MarketHandler) Buy(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	var body struct {
		Side         string     `json:"side" binding:"required"`
		BnbIn        mathx.U256 `json:"bnb_in" binding:"required"`
		MinSharesOut mathx.U256 `json:"min_shares_out"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	side, err := parseSide(body.Side)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SIDE", "side must be \"yes\" or \"no\"")
		return
	}

	pos, err := h.marketSvc.Buy(c.Request.Context(), service.BuyInput{
		MarketID:     marketID,
		Trader:       middleware.GetAddress(c),
		Side:         side,
		BnbIn:        body.BnbIn,
		MinSharesOut: body.MinSharesOut,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, pos)
}

// Sell godoc
// POST /api/markets/:id/sell [JWT]
func (h *MarketHandler) Sell(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	var body struct {
		Side      string     `json:"side" binding:"required"`
		SharesIn  mathx.U256 `json:"shares_in" binding:"required"`
		MinBnbOut mathx.U256 `json:"min_bnb_out"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	side, err := parseSide(body.Side)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SIDE", "side must be \"yes\" or \"no\"")
		return
	}

	pos, err := h.marketSvc.Sell(c.Request.Context(), service.SellInput{
		MarketID:  marketID,
		Trader:    middleware.GetAddress(c),
		Side:      side,
		SharesIn:  body.SharesIn,
		MinBnbOut: body.MinBnbOut,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, pos)
}

// ── reads ────────────────────────────────────────────────────────────────────

// GetByID godoc
// GET /api/markets/:id
func (h *MarketHandler) GetByID(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	m, err := h.marketSvc.GetMarket(c.Request.Context(), marketID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, m)
}

// ListMarkets godoc
// GET /api/markets?status=active&page=1&limit=20
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	status := c.Query("status")
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	markets, total, err := h.marketSvc.ListMarkets(c.Request.Context(), limit, offset, status)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondList(c, markets, total, page, limit)
}

// GetPosition godoc
// GET /api/markets/:id/position [JWT]
func (h *MarketHandler) GetPosition(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	pos, err := h.marketSvc.GetPosition(c.Request.Context(), marketID, middleware.GetAddress(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, pos)
}

// ── views (quote_buy, quote_sell, max_sellable, required_bond, market_status) ─

// QuoteBuy godoc
// GET /api/markets/:id/quote_buy?side=yes&bnb_in=1000000000000000000
func (h *MarketHandler) QuoteBuy(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	side, err := parseSide(c.Query("side"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SIDE", "side must be \"yes\" or \"no\"")
		return
	}
	var bnbIn mathx.U256
	if err := bnbIn.UnmarshalJSON([]byte(`"` + c.Query("bnb_in") + `"`)); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "bnb_in must be a decimal wei string")
		return
	}

	q, err := h.viewSvc.QuoteBuy(c.Request.Context(), marketID, side, bnbIn)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, q)
}

// QuoteSell godoc
// GET /api/markets/:id/quote_sell?side=yes&shares_in=...
func (h *MarketHandler) QuoteSell(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	side, err := parseSide(c.Query("side"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SIDE", "side must be \"yes\" or \"no\"")
		return
	}
	var sharesIn mathx.U256
	if err := sharesIn.UnmarshalJSON([]byte(`"` + c.Query("shares_in") + `"`)); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "shares_in must be a decimal string")
		return
	}

	q, err := h.viewSvc.QuoteSell(c.Request.Context(), marketID, side, sharesIn)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, q)
}

// MaxSellable godoc
// GET /api/markets/:id/max_sellable?side=yes [JWT]
func (h *MarketHandler) MaxSellable(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	side, err := parseSide(c.Query("side"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SIDE", "side must be \"yes\" or \"no\"")
		return
	}
	pos, err := h.marketSvc.GetPosition(c.Request.Context(), marketID, middleware.GetAddress(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	held := pos.YesShares
	if side == mathx.SideNo {
		held = pos.NoShares
	}

	res, err := h.viewSvc.MaxSellable(c.Request.Context(), marketID, side, held)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// RequiredBond godoc
// GET /api/markets/:id/required_bond
func (h *MarketHandler) RequiredBond(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	bond, err := h.viewSvc.RequiredBond(c.Request.Context(), marketID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"required_bond": bond.String()})
}

// MarketStatus godoc
// GET /api/markets/:id/status
func (h *MarketHandler) MarketStatus(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	status, err := h.viewSvc.MarketStatus(c.Request.Context(), marketID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": status})
}

// CanEmergencyRefund godoc
// GET /api/markets/:id/can_emergency_refund
func (h *MarketHandler) CanEmergencyRefund(c *gin.Context) {
	marketID, err := parseMarketID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MARKET_ID", err.Error())
		return
	}
	eligible, secondsLeft, err := h.viewSvc.CanEmergencyRefund(c.Request.Context(), marketID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"eligible": eligible, "seconds_remaining": secondsLeft})
}

// Treasury godoc
// GET /api/treasury
func (h *MarketHandler) Treasury(c *gin.Context) {
	report, err := h.viewSvc.TreasuryReport(c.Request.Context())
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parseMarketID(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streetconsensus/settlement/internal/api/handler"
	"github.com/streetconsensus/settlement/internal/api/middleware"
	"github.com/streetconsensus/settlement/internal/config"
	"github.com/streetconsensus/settlement/internal/service"
	"github.com/streetconsensus/settlement/internal/ws"
)

// RouterDeps bundles every dependency needed to build the public-facing
// router. Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc       *service.AuthService
	MarketSvc     *service.MarketService
	ResolutionSvc *service.ResolutionService
	LedgerSvc     *service.LedgerService
	ViewSvc       *service.ViewService
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupRouter creates and configures the main Gin engine serving every
// account, market, resolution, and ledger endpoint (spec §6), plus the
// WebSocket upgrade. The signer-only governance surface is mounted
// separately by governor.SetupRouter, behind its own IP allowlist.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(deps.Cfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authH := handler.NewAuthHandler(deps.AuthSvc)
	marketH := handler.NewMarketHandler(deps.MarketSvc, deps.ViewSvc)
	resH := handler.NewResolutionHandler(deps.ResolutionSvc)
	ledgerH := handler.NewLedgerHandler(deps.LedgerSvc)

	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)
	authRL := middleware.RateLimitMiddleware(10) // 10 req/s per IP for auth endpoints
	tradeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for trade endpoints

	apiGroup := r.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", authH.Register)
			auth.POST("/login", authH.Login)
			auth.POST("/refresh", authH.Refresh)
		}

		// ── Markets: read surface is public, writes require a JWT ───────────────
		markets := apiGroup.Group("/markets")
		{
			markets.GET("", marketH.ListMarkets)
			markets.GET("/:id", marketH.GetByID)
			markets.GET("/:id/status", marketH.MarketStatus)
			markets.GET("/:id/can_emergency_refund", marketH.CanEmergencyRefund)
			markets.GET("/:id/quote_buy", marketH.QuoteBuy)
			markets.GET("/:id/quote_sell", marketH.QuoteSell)
			markets.GET("/:id/required_bond", marketH.RequiredBond)

			authedMarkets := markets.Group("")
			authedMarkets.Use(jwtMW)
			{
				authedMarkets.POST("", marketH.CreateMarket)
				authedMarkets.POST("/create_and_buy", marketH.CreateMarketAndBuy)
				authedMarkets.GET("/:id/position", marketH.GetPosition)
				authedMarkets.GET("/:id/max_sellable", marketH.MaxSellable)

				trades := authedMarkets.Group("")
				trades.Use(tradeRL)
				{
					trades.POST("/:id/buy", marketH.Buy)
					trades.POST("/:id/sell", marketH.Sell)
				}

				// ── Resolution FSM ───────────────────────────────────────────────
				authedMarkets.POST("/:id/propose_outcome", resH.ProposeOutcome)
				authedMarkets.POST("/:id/dispute", resH.Dispute)
				authedMarkets.POST("/:id/vote", resH.Vote)
				authedMarkets.POST("/:id/finalize", resH.FinalizeMarket)
				authedMarkets.POST("/:id/claim", resH.Claim)
				authedMarkets.POST("/:id/emergency_refund", resH.EmergencyRefund)
				authedMarkets.POST("/:id/claim_creator_fees", resH.ClaimCreatorFees)
			}
		}

		treasury := apiGroup.Group("/treasury")
		{
			treasury.GET("", marketH.Treasury)
		}

		// ── Authenticated, non-market-scoped routes ────────────────────────────
		authed := apiGroup.Group("")
		authed.Use(jwtMW)
		{
			authed.GET("/me", authH.Me)

			ledger := authed.Group("/ledger")
			{
				ledger.GET("/balance", ledgerH.Balance)
				ledger.POST("/withdraw", ledgerH.Withdraw)
			}
		}
	}

	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In non-production environments all origins are allowed; in production
// only the explicitly configured origins are reflected back.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, o := range cfg.Server.AllowedOrigins {
				if o == "*" || o == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

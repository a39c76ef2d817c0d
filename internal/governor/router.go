// Package governor serves the signer-facing admin surface: the M-of-N
// governance action dashboard (propose/confirm/execute, spec §4.6) and a
// risk view over markets approaching emergency-refund eligibility. It is
// the settlement engine's analogue of the teacher's back-office server —
// same IP-allowlist-plus-role-gate shape, gutted down to the one role
// (signer) this domain actually has.
package governor

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apihandler "github.com/streetconsensus/settlement/internal/api/handler"
	"github.com/streetconsensus/settlement/internal/api/middleware"
	"github.com/streetconsensus/settlement/internal/config"
	"github.com/streetconsensus/settlement/internal/governor/handler"
	"github.com/streetconsensus/settlement/internal/repository"
	"github.com/streetconsensus/settlement/internal/service"
)

// Deps bundles every dependency needed for the governor router.
type Deps struct {
	AuthSvc        *service.AuthService
	GovSvc         *service.GovernanceService
	GovernanceRepo *repository.GovernanceRepository
	MarketRepo     *repository.MarketRepository
	Cfg            *config.Config
}

// SetupRouter creates the signer-only admin Gin engine, meant to be served
// on Cfg.Server.GovernorPort, separate from the public API.
func SetupRouter(deps Deps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.GovernorAllowedIPs))

	govH := apihandler.NewGovernanceHandler(deps.GovSvc, deps.GovernanceRepo)
	riskH := handler.NewRiskHandler(deps.MarketRepo)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	signerGroup := r.Group("/governor")
	signerGroup.Use(middleware.JWTMiddleware(deps.AuthSvc))
	signerGroup.Use(middleware.SignerMiddleware())
	{
		actions := signerGroup.Group("/actions")
		{
			actions.GET("/pending", govH.ListPending)
			actions.POST("", govH.ProposeAction)
			actions.POST("/:id/confirm", govH.ConfirmAction)
			actions.POST("/:id/execute", govH.ExecuteAction)
		}

		risk := signerGroup.Group("/risk")
		{
			risk.GET("/expiring", riskH.ExpiringSoon)
		}
	}

	return r
}

// ── IP allowlist ───────────────────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all (dev mode).
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() }
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		if !allowed[c.ClientIP()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

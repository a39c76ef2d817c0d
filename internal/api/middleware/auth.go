package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/service"
)

// ContextKey constants for gin.Context values set by middleware.
const (
	CtxAddress = "address"
	CtxRole    = "role"
)

// ──────────────────────────────────────────────────────────────────────────────
// JWTMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// JWTMiddleware validates the Bearer token in the Authorization header.
// On success it stores address (string) and role (string) in the gin context.
// The settlement engine below only ever sees this address — it has no
// concept of accounts, passwords, or tokens.
func JWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims, err := authSvc.ParseAccessToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrTokenInvalid.Error(),
			})
			return
		}

		if claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token type must be access",
			})
			return
		}

		c.Set(CtxAddress, claims.Address)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// RoleMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// RoleMiddleware ensures the authenticated caller has one of the allowed
// roles. Must be placed after JWTMiddleware in the chain.
func RoleMiddleware(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, _ := c.Get(CtxRole)
		roleStr, _ := role.(string)
		if !allowed[roleStr] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient role",
			})
			return
		}
		c.Next()
	}
}

// SignerMiddleware allows only governance signers onto the route. Must be
// placed after JWTMiddleware in the chain.
func SignerMiddleware() gin.HandlerFunc {
	return RoleMiddleware(string(domain.RoleSigner))
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers — extract caller identity from context (for use in handlers)
// ──────────────────────────────────────────────────────────────────────────────

// GetAddress retrieves the authenticated caller's address from the gin
// context. Returns "" if the middleware was not applied or the value is
// missing.
func GetAddress(c *gin.Context) string {
	v, _ := c.Get(CtxAddress)
	addr, _ := v.(string)
	return addr
}

// GetRole retrieves the authenticated caller's role string from the gin context.
func GetRole(c *gin.Context) string {
	v, _ := c.Get(CtxRole)
	r, _ := v.(string)
	return r
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streetconsensus/settlement/internal/domain"
)

// respondEngineError maps a settlement-engine error to an HTTP status using
// the domain package's error-kind predicates (spec §7), the same way the
// teacher's handlers switch on sentinel errors per endpoint — except here
// one switch serves every handler, since every engine error already
// declares its own kind rather than needing a per-endpoint case.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPaused):
		respondError(c, http.StatusServiceUnavailable, "ERR_PAUSED", err.Error())
	case domain.IsAuthorization(err):
		respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", err.Error())
	case domain.IsTiming(err):
		respondError(c, http.StatusConflict, "ERR_WINDOW", err.Error())
	case domain.IsState(err):
		respondError(c, http.StatusConflict, "ERR_STATE", err.Error())
	case domain.IsEconomic(err):
		respondError(c, http.StatusUnprocessableEntity, "ERR_ECONOMIC", err.Error())
	case domain.IsInput(err):
		respondError(c, http.StatusBadRequest, "ERR_INPUT", err.Error())
	case domain.IsSolvencyGuard(err):
		respondError(c, http.StatusConflict, "ERR_SOLVENCY_GUARD", err.Error())
	case domain.IsExternal(err):
		respondError(c, http.StatusBadGateway, "ERR_EXTERNAL", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "ERR_INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, domain.ErrAccountInactive):
		respondError(c, http.StatusForbidden, "ERR_ACCOUNT_INACTIVE", err.Error())
	case errors.Is(err, domain.ErrTokenInvalid):
		respondError(c, http.StatusUnauthorized, "ERR_TOKEN_INVALID", err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		respondError(c, http.StatusNotFound, "ERR_ACCOUNT_NOT_FOUND", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "internal error")
	}
}

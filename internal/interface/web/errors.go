package web

import (
	"errors"
	"net/http"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// statusForKind maps a domain.Kind to its HTTP disposition per spec §7.
func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidRecoveryKey, domain.KindRecoveryNotAvailable:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindStatusConflict:
		return http.StatusConflict
	case domain.KindInsufficientFunds, domain.KindCannotPrime, domain.KindRpcError, domain.KindSourceTxMissing:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the `{error: string}` envelope required by §7. For a
// domain error only its Message crosses the boundary, never its Cause; any
// other error is reported as "internal error".
func respondError(c *gin.Context, err error) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		c.JSON(statusForKind(domainErr.Kind), gin.H{"error": domainErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

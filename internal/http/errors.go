package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"multiauth/internal/domain"
	"multiauth/internal/handshake"
	"multiauth/internal/service"
)

// statusFor traduce la taxonomia de errores al codigo HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTicketInvalid), errors.Is(err, service.ErrTicketExpired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrChallengeFailed):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrHandleNotFound), errors.Is(err, handshake.ErrUnknown):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoActiveSession), errors.Is(err, handshake.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPlatformUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError responde con el mensaje del error salvo en fallos internos.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && !errors.Is(err, domain.ErrConfiguration) {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// writeResult usa 401 para resultados fallidos sin error.
func writeResult(c *gin.Context, okStatus int, res domain.AuthResult) {
	if !res.Success {
		c.JSON(http.StatusUnauthorized, gin.H{"result": res})
		return
	}
	c.JSON(okStatus, gin.H{"result": res})
}

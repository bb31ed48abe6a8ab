package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"realty-api/internal/service"
)

// envelope es la forma uniforme de todas las respuestas JSON.
type envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg})
}

func respondValidation(c *gin.Context, fields []FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{
		Success: false,
		Error:   "validation failed",
		Fields:  fields,
	})
}

// writeServiceError traduce errores del servicio al envelope; lo desconocido es 500.
func writeServiceError(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrJWTInvalid),
		errors.Is(err, service.ErrJWTExpired),
		errors.Is(err, service.ErrJWTRevoked):
		respondError(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrEmailInUse):
		respondError(c, http.StatusBadRequest, "email already in use")
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrOTPNotRequested),
		errors.Is(err, service.ErrOTPExpired),
		errors.Is(err, service.ErrOTPInvalid):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrEmailAlreadyVerified):
		respondError(c, http.StatusConflict, "email already verified")
	case errors.Is(err, service.ErrRateLimited):
		respondError(c, http.StatusTooManyRequests, "too many requests")
	case errors.Is(err, service.ErrEmailSendFailure):
		respondError(c, http.StatusServiceUnavailable, "email delivery unavailable")
	default:
		logger.Error(op+" failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

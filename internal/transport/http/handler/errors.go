package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/authgate/internal/domain"
)

const (
	errAuthenticationFailed = "Authentication failed"
	errInvalidPassword      = "Password does not meet requirements"
	errUserAlreadyExists    = "User already exists"
	errRateLimitExceeded    = "Rate limit exceeded"
	errNotFound             = "Resource not found"
	errInvalidRequest       = "Invalid request"
	errInternalServer       = "Internal server error"
)

// respondError maps domain errors to a status and a stable message. Anything
// unrecognised is logged and reported as a 500 without detail.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrAuthentication), errors.Is(err, domain.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errAuthenticationFailed})
	case errors.Is(err, domain.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidPassword})
	case errors.Is(err, domain.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": errUserAlreadyExists})
	case errors.Is(err, domain.ErrRateLimitExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": errRateLimitExceeded})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
	default:
		logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}

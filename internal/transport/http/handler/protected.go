package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/authgate/internal/authctx"
)

// GET /protected
// Must run behind middleware.Auth.
func Protected(c *gin.Context) {
	claims, ok := authctx.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errAuthenticationFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "This is a protected endpoint",
		"user_id": claims.Subject,
	})
}

// GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

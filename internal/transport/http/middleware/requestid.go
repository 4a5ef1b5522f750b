package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/authgate/internal/requestid"
)

const requestIDHeader = "X-Request-ID"

// RequestID injects a request ID into the context and response header,
// keeping a well-formed client-supplied X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestid.FromHeader(c.GetHeader(requestIDHeader))

		c.Request = c.Request.WithContext(requestid.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

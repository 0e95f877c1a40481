package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oracare/fulfillment/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that rejects request bodies over maxBytes.
// Streaming requests without a Content-Length are capped by a limited reader.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Request body exceeds maximum allowed size"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

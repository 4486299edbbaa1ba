package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxRequestBody caps every request body, processor webhooks included.
const MaxRequestBody int64 = 1 << 20

// MaxBodySize wraps the request body in http.MaxBytesReader. Reading past
// maxBytes fails instead of returning a truncated body, so the webhook
// handler rejects an oversized notification before its signature is checked
// and an HMAC is never computed over a partial payload.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

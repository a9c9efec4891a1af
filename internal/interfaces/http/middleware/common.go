package middleware

import (
	"github.com/downform/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the header and context key carrying the request id
const RequestIDKey = "X-Request-ID"

// RequestID assigns every request an id, honoring one supplied by the
// caller, and echoes it on the response. The id is stored in both the
// gin context (for handlers) and the request context, so the GORM
// logger can correlate query logs with the request that issued them.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDKey)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDKey, id)

		ctx := c.Request.Context()
		ctx, _ = logger.WithRequestID(ctx, logger.FromContext(ctx), id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

package http

import (
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID takes the caller's X-Request-ID or generates one, exposes it to
// the logger through the request context and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Header(common.RequestIDHeader, id)
		c.Next()
	}
}

func Logging(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(started),
		}
		if c.Writer.Status() >= 500 {
			l.Error(c.Request.Context(), "http request failed", args...)
			return
		}
		l.Info(c.Request.Context(), "http request", args...)
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bryceadler/procurehub-backend/internal/logger"
)

// RequestLogger logs one line per request through the structured logger so
// HTTP traffic lands in the same stream as service logs.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			reqLog.Error("request", append(fields, "errors", c.Errors.String())...)
			return
		}
		reqLog.Info("request", fields...)
	}
}

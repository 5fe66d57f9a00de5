package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baladia/taxe/internal/metrics"
)

// Metrics records the request count and latency per matched route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

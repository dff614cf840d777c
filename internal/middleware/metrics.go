// File: internal/middleware/metrics.go
package middleware

import (
	"time"

	"shoe_market_backend/internal/platform/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency per matched route template, so
// /shoes/:id is one series regardless of the id.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

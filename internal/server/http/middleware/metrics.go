package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/invoicedesk/internal/metrics"
)

// Metrics records request counts and latency per matched route.
func Metrics(collectors *metrics.Collectors) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		collectors.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		collectors.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

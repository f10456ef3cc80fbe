package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/telekom/k8s-spark-launcher/pkg/metrics"
)

// measured records request count, latency, and error status codes for the
// handlers chained after it, under the given endpoint label.
func measured(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.APIEndpointRequests.WithLabelValues(endpoint).Inc()

		start := time.Now()
		c.Next()
		metrics.APIEndpointDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

		if status := c.Writer.Status(); status >= 400 {
			metrics.APIEndpointErrors.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
		}
	}
}

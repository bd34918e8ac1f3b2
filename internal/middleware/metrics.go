package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/service"
)

// Metrics records one observation per request. Requests without a matched
// route are the legacy pass-through traffic; those are collapsed under a
// single proxy label so arbitrary backend paths cannot blow up the
// per-path series cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "proxy"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

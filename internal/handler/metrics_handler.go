package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a readiness payload including the metrics snapshot.
func (h *MetricsHandler) Health(c *gin.Context) {
	payload := gin.H{"status": "ok"}
	if h.metrics != nil {
		payload["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, payload)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BenAmorMed/ExamSupervisor/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	pinger  func() error
}

// NewMetricsHandler constructs a metrics handler. The pinger reports database
// reachability for the readiness probe and may be nil.
func NewMetricsHandler(metrics *service.MetricsService, pinger func() error) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, pinger: pinger}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports readiness, checking the database when a pinger is configured.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

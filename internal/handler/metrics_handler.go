package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/repository"
	"github.com/noah-isme/student-records-api/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	store   repository.StudentStore
	driver  string
}

// NewMetricsHandler constructs a metrics handler. store is pinged by Ready
// when it implements repository.Pinger.
func NewMetricsHandler(metrics *service.MetricsService, store repository.StudentStore, driver string) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, store: store, driver: driver}
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

// Ready reports whether the configured store answers.
func (h *MetricsHandler) Ready(c *gin.Context) {
	pinger, ok := h.store.(repository.Pinger)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "store": h.driver})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := pinger.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "store": h.driver, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "store": h.driver})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DatabaseHealthChecker verifies the database connection.
type DatabaseHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RedisHealthChecker verifies the Redis connection.
type RedisHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db        DatabaseHealthChecker
	redis     RedisHealthChecker
	version   string
	startedAt time.Time
}

func NewHealthHandler(db DatabaseHealthChecker, redis RedisHealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthCheck reports overall status plus per-dependency status. Redis is
// optional, so a missing client reads as "disabled" rather than "down".
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	svcs := map[string]string{}

	if err := h.db.HealthCheck(ctx); err != nil {
		svcs["database"] = "down"
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		svcs["database"] = "up"
	}

	if h.redis == nil {
		svcs["redis"] = "disabled"
	} else if err := h.redis.HealthCheck(ctx); err != nil {
		svcs["redis"] = "down"
		if status == "healthy" {
			status = "degraded"
		}
	} else {
		svcs["redis"] = "up"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   h.version,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"services":  svcs,
	})
}

// ReadinessCheck gates traffic on the database being reachable.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// LivenessCheck only proves the process is serving requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moon4656/skyboot-core/pkg/database"
	"github.com/moon4656/skyboot-core/pkg/redis"
)

// HealthHandler reports service and dependency health
type HealthHandler struct {
	db      *database.PostgresDB
	redis   *redis.Client
	service string
}

// NewHealthHandler creates a HealthHandler. redis may be nil when the
// deployment runs without one.
func NewHealthHandler(db *database.PostgresDB, redisClient *redis.Client, serviceName string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redisClient,
		service: serviceName,
	}
}

// Health checks dependency connectivity
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	checks := gin.H{}

	if err := h.db.HealthCheck(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "healthy"
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"service":   h.service,
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

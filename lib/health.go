package userdesk

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"userdesk/lib/database"
	"userdesk/shared/logger"
)

type Health interface {
	HealthCheckHandler(c *gin.Context)
}

type zHealth struct {
	driver database.Driver
}

// NewHealth reports the service healthy while the store answers pings.
func NewHealth(d database.Driver) Health {
	return &zHealth{driver: d}
}

func (h *zHealth) HealthCheckHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.driver.Ping(ctx); err != nil {
		logger.Warn("Health check failed", logger.String("driver", h.driver.DriverName()), logger.Err(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "The data store is unreachable.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "The service is running smoothly.",
	})
}

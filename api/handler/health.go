package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/jobscout/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "busy" while a run holds the gate.
func Health(gate *Gate, engineName string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		running := gate.Running()
		status := "healthy"
		if running {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Engine:  engineName,
			Running: running,
			Version: Version,
		})
	}
}

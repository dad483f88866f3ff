package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lexbook/utils"
)

// HealthHandler reports the last dependency check.
func HealthHandler(monitor *utils.HealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := monitor.Status()
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": statusText(status.Healthy), "services": status.Services, "checkedAt": status.CheckedAt})
	}
}

func statusText(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}

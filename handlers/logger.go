package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexbook/middleware"
)

// getLogger retrieves the request logger stored by middleware.RequestLogger,
// falling back to the handler's own logger.
func getLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if l, exists := c.Get(middleware.LoggerKey); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

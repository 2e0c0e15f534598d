package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricegrid/pricegrid/engine"
	"github.com/pricegrid/pricegrid/merchant"
	"github.com/pricegrid/pricegrid/models"
)

// Version is the service version reported by /health.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports page pool utilisation (when a browser is running) and degrades
// status when > 80% of pages are active.
func Health(reg *merchant.Registry, browser *engine.Browser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"

		var pool *models.PoolStats
		if browser != nil {
			maxPages, activePages := browser.Stats()
			pool = &models.PoolStats{MaxPages: maxPages, ActivePages: activePages}
			if maxPages > 0 && activePages > int(float64(maxPages)*0.8) {
				status = "degraded"
			}
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Version:   Version,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Merchants: reg.Infos(),
			Browser:   pool,
		})
	}
}

// Merchants returns a handler for GET /api/v1/merchants.
func Merchants(reg *merchant.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"merchants": reg.Infos()})
	}
}

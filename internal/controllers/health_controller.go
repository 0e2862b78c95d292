package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthProbeTimeout = 5 * time.Second

// HealthChecker probes the remote analysis service.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type HealthController struct {
	pingDB  func() error
	ai      HealthChecker
	version string
}

func NewHealthController(pingDB func() error, ai HealthChecker, version string) *HealthController {
	return &HealthController{pingDB: pingDB, ai: ai, version: version}
}

// Health reports database and AI service status. Only a database failure
// makes the endpoint unhealthy; the AI service is reported as degraded.
func (hc *HealthController) Health(c *gin.Context) {
	dbStatus, dbError := "ok", ""
	if err := hc.pingDB(); err != nil {
		dbStatus, dbError = "error", "database unreachable"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	aiStatus, aiError := "ok", ""
	if hc.ai == nil {
		aiStatus = "unknown"
	} else if err := hc.ai.CheckHealth(ctx); err != nil {
		aiStatus, aiError = "degraded", err.Error()
	}

	overallStatus := "ok"
	statusCode := http.StatusOK
	if dbStatus != "ok" {
		overallStatus = "error"
		statusCode = http.StatusServiceUnavailable
	} else if aiStatus != "ok" {
		overallStatus = "degraded"
	}

	c.JSON(statusCode, gin.H{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   hc.version,
		"services": gin.H{
			"database":  gin.H{"status": dbStatus, "error": dbError},
			"aiService": gin.H{"status": aiStatus, "error": aiError},
		},
	})
}

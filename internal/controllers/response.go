package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/middleware"
	"github.com/pulseesg/backend/internal/services"
	"github.com/sirupsen/logrus"
)

// failure writes the {success:false} envelope used for analysis errors.
func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusForKind maps pipeline failures onto HTTP statuses.
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindSubjectNotFound:
		return http.StatusNotFound
	case services.KindRemoteTimeout, services.KindRemoteUnavailable:
		return http.StatusServiceUnavailable
	case services.KindRemotePermanent, services.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAnalysisError logs the full cause and answers with the canned message
// only.
func writeAnalysisError(c *gin.Context, err error, component string) {
	kind := services.KindOf(err)
	status := statusForKind(kind)

	entry := logger.WithError(err, component).WithFields(logrus.Fields{
		"request_id": middleware.RequestID(c),
		"kind":       kind,
		"status":     status,
	})
	if status == http.StatusInternalServerError {
		entry.Error("Request failed")
		failure(c, status, "Internal server error")
		return
	}
	entry.Warn("Request failed")
	failure(c, status, err.Error())
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/middleware"
	"github.com/pulseesg/backend/internal/services"
)

type UserController struct {
	auth *services.AuthService
}

func NewUserController(auth *services.AuthService) *UserController {
	return &UserController{auth: auth}
}

func (uc *UserController) GetCurrentUser(c *gin.Context) {
	analyst, err := uc.auth.Profile(c.Request.Context(), middleware.AnalystID(c))
	if errors.Is(err, services.ErrAnalystNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		logger.WithError(err, "user_controller").Error("Failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, analyst)
}

// GetUsers lists analysts with ?limit=&offset= paging.
func (uc *UserController) GetUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	analysts, total, err := uc.auth.ListAnalysts(c.Request.Context(), limit, offset)
	if err != nil {
		logger.WithError(err, "user_controller").Error("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": analysts,
		"total": total,
	})
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/services"
)

type CompanyController struct {
	companies *services.CompanyService
}

func NewCompanyController(companies *services.CompanyService) *CompanyController {
	return &CompanyController{companies: companies}
}

type CreateCompanyRequest struct {
	Name    string `json:"name" binding:"required"`
	Sector  string `json:"sector"`
	Country string `json:"country"`
}

func (cc *CompanyController) Create(c *gin.Context) {
	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Company name is required"})
		return
	}

	company, err := cc.companies.Create(c.Request.Context(), req.Name, req.Sector, req.Country)
	if errors.Is(err, services.ErrCompanyNameRequired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Company name is required"})
		return
	}
	if err != nil {
		logger.WithError(err, "company_controller").Error("Failed to create company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create company"})
		return
	}

	c.JSON(http.StatusCreated, company)
}

func (cc *CompanyController) List(c *gin.Context) {
	companies, err := cc.companies.List(c.Request.Context())
	if err != nil {
		logger.WithError(err, "company_controller").Error("Failed to list companies")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list companies"})
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (cc *CompanyController) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid company id"})
		return
	}

	err = cc.companies.Delete(c.Request.Context(), uint(id))
	if errors.Is(err, services.ErrCompanyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		return
	}
	if err != nil {
		logger.WithError(err, "company_controller").Error("Failed to delete company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete company"})
		return
	}

	c.Status(http.StatusNoContent)
}

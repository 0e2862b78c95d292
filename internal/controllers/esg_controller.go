package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/middleware"
	"github.com/pulseesg/backend/internal/services"
	"github.com/sirupsen/logrus"
)

// ESGAnalyzer is what the controller needs from the analysis service.
type ESGAnalyzer interface {
	Analyze(ctx context.Context, companyID uint, text string) (*services.AnalysisResponse, error)
	History(ctx context.Context, companyID uint) ([]services.AnalysisRecordView, error)
}

type ESGController struct {
	analyses ESGAnalyzer
}

func NewESGController(analyses ESGAnalyzer) *ESGController {
	return &ESGController{analyses: analyses}
}

// AnalyzeRequest accepts newsText, or text from older clients.
type AnalyzeRequest struct {
	CompanyID uint   `json:"companyId" binding:"required"`
	NewsText  string `json:"newsText"`
	Text      string `json:"text"`
}

func (r AnalyzeRequest) body() string {
	if r.NewsText != "" {
		return r.NewsText
	}
	return r.Text
}

func (ec *ESGController) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "companyId is required")
		return
	}
	text := req.body()
	if strings.TrimSpace(text) == "" {
		failure(c, http.StatusBadRequest, "News text is required")
		return
	}

	resp, err := ec.analyses.Analyze(c.Request.Context(), req.CompanyID, text)
	if err != nil {
		writeAnalysisError(c, err, "esg_controller")
		return
	}

	logger.WithUser(middleware.AnalystID(c), middleware.AnalystEmail(c)).WithFields(logrus.Fields{
		"company_id": req.CompanyID,
		"persisted":  resp.Persisted,
	}).Info("ESG analysis served")

	c.JSON(http.StatusOK, resp)
}

func (ec *ESGController) History(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("companyId"), 10, 64)
	if err != nil {
		failure(c, http.StatusBadRequest, "Invalid company id")
		return
	}

	records, err := ec.analyses.History(c.Request.Context(), uint(id))
	if err != nil {
		writeAnalysisError(c, err, "esg_history")
		return
	}

	c.JSON(http.StatusOK, records)
}

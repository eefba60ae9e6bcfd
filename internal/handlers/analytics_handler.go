package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/repositories"
	"github.com/classgrade/grading-engine/internal/services"
	"github.com/classgrade/grading-engine/internal/utils"
)

type AnalyticsHandler struct {
	BaseHandler
	analyticsService services.AnalyticsService
	exportService    services.ExportService
	repo             repositories.Repository
	validator        *utils.Validator
}

type ComputeAnalyticsRequest struct {
	Exam models.Exam `json:"exam" validate:"required"`
}

func NewAnalyticsHandler(
	analyticsService services.AnalyticsService,
	exportService services.ExportService,
	repo repositories.Repository,
	validator *utils.Validator,
	logger utils.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      NewBaseHandler(logger),
		analyticsService: analyticsService,
		exportService:    exportService,
		repo:             repo,
		validator:        validator,
	}
}

// ComputeAnalytics generates a fresh report over all stored grades
// @Summary Compute analytics
// @Description Reduces all graded submissions of one exam into a class report
// @Tags analytics
// @Accept json
// @Produce json
// @Param exam_id path string true "Exam ID"
// @Param request body ComputeAnalyticsRequest true "Exam"
// @Success 200 {object} models.AnalyticsReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /analytics/exams/{exam_id} [post]
func (h *AnalyticsHandler) ComputeAnalytics(c *gin.Context) {
	examID := ParseStringIDParam(c, "exam_id")
	if examID == "" {
		return
	}

	var req ComputeAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Computing analytics", "exam_id", examID)

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	results, err := h.repo.Results().ListByExam(c.Request.Context(), examID, repositories.ResultFilters{})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	report, err := h.analyticsService.ComputeAnalytics(c.Request.Context(), &req.Exam, results)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := h.repo.Reports().Save(c.Request.Context(), report); err != nil {
		h.LogError(c, err, "Failed to persist analytics report", "exam_id", examID)
	}

	c.JSON(http.StatusOK, report)
}

// GetLatestReport returns the most recently generated report
// @Summary Get latest report
// @Tags analytics
// @Produce json
// @Param exam_id path string true "Exam ID"
// @Success 200 {object} models.AnalyticsReport
// @Failure 404 {object} ErrorResponse
// @Router /analytics/exams/{exam_id} [get]
func (h *AnalyticsHandler) GetLatestReport(c *gin.Context) {
	examID := ParseStringIDParam(c, "exam_id")
	if examID == "" {
		return
	}

	report, err := h.repo.Reports().GetLatest(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportAnalytics renders the latest report as an Excel workbook
// @Summary Export analytics
// @Tags analytics
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param exam_id path string true "Exam ID"
// @Param request body ComputeAnalyticsRequest true "Exam"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /analytics/exams/{exam_id}/export [post]
func (h *AnalyticsHandler) ExportAnalytics(c *gin.Context) {
	examID := ParseStringIDParam(c, "exam_id")
	if examID == "" {
		return
	}

	var req ComputeAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	report, err := h.repo.Reports().GetLatest(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	data, err := h.exportService.ExportAnalytics(c.Request.Context(), &req.Exam, report)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="analytics_`+examID+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

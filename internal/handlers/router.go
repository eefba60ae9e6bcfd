package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/repositories"
	"github.com/classgrade/grading-engine/internal/services"
	"github.com/classgrade/grading-engine/internal/utils"
)

type HandlerManager struct {
	gradingHandler   *GradingHandler
	analyticsHandler *AnalyticsHandler
}

func NewHandlerManager(
	gradingService services.GradingService,
	analyticsService services.AnalyticsService,
	exportService services.ExportService,
	repo repositories.Repository,
	validator *utils.Validator,
	defaults models.GradingConfig,
	concurrency int,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		gradingHandler: NewGradingHandler(
			gradingService, exportService, repo.Results(), validator, defaults, concurrency, logger),
		analyticsHandler: NewAnalyticsHandler(
			analyticsService, exportService, repo, validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		grading := v1.Group("/grading")
		{
			grading.POST("/grade", hm.gradingHandler.GradeSubmission)
			grading.POST("/batch", hm.gradingHandler.GradeBatch)
			grading.GET("/exams/:exam_id/results", hm.gradingHandler.ListResults)
			grading.GET("/exams/:exam_id/results/:student_id", hm.gradingHandler.GetResult)
			grading.POST("/exams/:exam_id/export", hm.gradingHandler.ExportResults)
		}

		analytics := v1.Group("/analytics")
		{
			analytics.POST("/exams/:exam_id", hm.analyticsHandler.ComputeAnalytics)
			analytics.GET("/exams/:exam_id", hm.analyticsHandler.GetLatestReport)
			analytics.POST("/exams/:exam_id/export", hm.analyticsHandler.ExportAnalytics)
		}
	}
}

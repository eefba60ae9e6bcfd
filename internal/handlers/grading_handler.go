package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/repositories"
	"github.com/classgrade/grading-engine/internal/services"
	"github.com/classgrade/grading-engine/internal/utils"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
	exportService  services.ExportService
	results        repositories.ResultRepository
	validator      *utils.Validator
	defaults       models.GradingConfig
	concurrency    int
}

type GradeSubmissionRequest struct {
	Exam       models.Exam           `json:"exam" validate:"required"`
	Submission models.Submission     `json:"submission" validate:"required"`
	Config     *models.GradingConfig `json:"config"`
}

type GradeBatchRequest struct {
	Exam        models.Exam           `json:"exam" validate:"required"`
	Submissions []models.Submission   `json:"submissions" validate:"required,min=1"`
	Config      *models.GradingConfig `json:"config"`
	Concurrency int                   `json:"concurrency" validate:"omitempty,min=1,max=64"`
}

type ExportResultsRequest struct {
	Exam models.Exam `json:"exam" validate:"required"`
}

func NewGradingHandler(
	gradingService services.GradingService,
	exportService services.ExportService,
	results repositories.ResultRepository,
	validator *utils.Validator,
	defaults models.GradingConfig,
	concurrency int,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
		exportService:  exportService,
		results:        results,
		validator:      validator,
		defaults:       defaults,
		concurrency:    concurrency,
	}
}

// GradeSubmission grades one submission against its exam
// @Summary Grade submission
// @Description Grades a single student submission and stores the result
// @Tags grading
// @Accept json
// @Produce json
// @Param request body GradeSubmissionRequest true "Exam and submission"
// @Success 200 {object} models.SubmissionResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /grading/grade [post]
func (h *GradingHandler) GradeSubmission(c *gin.Context) {
	var req GradeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Grading submission",
		"exam_id", req.Exam.ID, "student_id", req.Submission.StudentID)

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	cfg := h.defaults
	if req.Config != nil {
		cfg = *req.Config
	}

	result, err := h.gradingService.GradeSubmission(c.Request.Context(), &req.Exam, &req.Submission, cfg)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if h.results != nil {
		if err := h.results.Save(c.Request.Context(), result); err != nil {
			h.LogError(c, err, "Failed to persist graded submission",
				"exam_id", result.ExamID, "student_id", result.StudentID)
		}
	}

	c.JSON(http.StatusOK, result)
}

// GradeBatch grades multiple submissions concurrently
// @Summary Grade batch
// @Description Grades a batch of submissions against one exam
// @Tags grading
// @Accept json
// @Produce json
// @Param request body GradeBatchRequest true "Exam and submissions"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /grading/batch [post]
func (h *GradingHandler) GradeBatch(c *gin.Context) {
	var req GradeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Grading batch",
		"exam_id", req.Exam.ID, "submissions", len(req.Submissions))

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	cfg := h.defaults
	if req.Config != nil {
		cfg = *req.Config
	}
	concurrency := h.concurrency
	if req.Concurrency > 0 {
		concurrency = req.Concurrency
	}

	submissions := make([]*models.Submission, len(req.Submissions))
	for i := range req.Submissions {
		submissions[i] = &req.Submissions[i]
	}

	results, err := h.gradingService.GradeBatch(c.Request.Context(), &req.Exam, submissions, cfg, concurrency)

	graded := make([]*models.SubmissionResult, 0, len(results))
	failed := 0
	for _, result := range results {
		if result == nil {
			failed++
			continue
		}
		graded = append(graded, result)
		if h.results != nil {
			if saveErr := h.results.Save(c.Request.Context(), result); saveErr != nil {
				h.LogError(c, saveErr, "Failed to persist graded submission",
					"exam_id", result.ExamID, "student_id", result.StudentID)
			}
		}
	}

	response := gin.H{
		"results": graded,
		"graded":  len(graded),
		"failed":  failed,
	}
	if err != nil {
		response["errors"] = err.Error()
	}
	c.JSON(http.StatusOK, response)
}

// GetResult returns the stored grade for one student
// @Summary Get graded result
// @Tags grading
// @Produce json
// @Param exam_id path string true "Exam ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} models.SubmissionResult
// @Failure 404 {object} ErrorResponse
// @Router /grading/exams/{exam_id}/results/{student_id} [get]
func (h *GradingHandler) GetResult(c *gin.Context) {
	examID := ParseStringIDParam(c, "exam_id")
	if examID == "" {
		return
	}
	studentID := ParseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}

	result, err := h.results.GetByStudent(c.Request.Context(), examID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListResults returns all stored grades for one exam
// @Summary List graded results
// @Tags grading
// @Produce json
// @Param exam_id path string true "Exam ID"
// @Param grade query string false "Filter by letter grade"
// @Success 200 {object} SuccessResponse
// @Router /grading/exams/{exam_id}/results [get]
func (h *GradingHandler) ListResults(c *gin.Context) {
	examID := ParseStringIDParam(c, "exam_id")
	if examID == "" {
		return
	}

	filters := repositories.ResultFilters{}
	if grade := c.Query("grade"); grade != "" {
		if !slices.Contains(models.LetterGrades, grade) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid grade filter",
				Details: "grade must be one of A, B, C, D, F",
			})
			return
		}
		filters.LetterGrade = &grade
	}
	filters.DegradedOnly = c.Query("degraded") == "true"

	results, err := h.results.ListByExam(c.Request.Context(), examID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// ExportResults renders stored grades for one exam as an Excel workbook
// @Summary Export graded results
// @Tags grading
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param exam_id path string true "Exam ID"
// @Param request body ExportResultsRequest true "Exam"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /grading/exams/{exam_id}/export [post]
func (h *GradingHandler) ExportResults(c *gin.Context) {
	examID := ParseStringIDParam(c, "exam_id")
	if examID == "" {
		return
	}

	var req ExportResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	results, err := h.results.ListByExam(c.Request.Context(), examID, repositories.ResultFilters{})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No graded submissions for this exam",
		})
		return
	}

	data, err := h.exportService.ExportResults(c.Request.Context(), &req.Exam, results)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="results_`+examID+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classgrade/grading-engine/internal/repositories"
	"github.com/classgrade/grading-engine/internal/services"
	"github.com/classgrade/grading-engine/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error mapping for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetHeader("X-Request-ID"),
		"timestamp", time.Now().Format(time.RFC3339),
	}
	fields = append(fields, additionalFields...)
	h.logger.Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)
	h.logger.LogError(err, message, fields...)
}

// handleServiceError maps service-layer errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var invalidSubmission *services.InvalidSubmissionError
	if errors.As(err, &invalidSubmission) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid submission",
			Details: invalidSubmission,
			Code:    "INVALID_SUBMISSION",
		})
		return
	}

	var configuration *services.ConfigurationError
	if errors.As(err, &configuration) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Exam configuration error",
			Details: configuration,
			Code:    "CONFIGURATION_ERROR",
		})
		return
	}

	switch {
	case services.IsEmptyBatch(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No graded submissions for this exam",
			Code:    "EMPTY_BATCH",
		})
	case services.IsServiceUnavailable(err):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Semantic grading service unavailable",
			Code:    "SERVICE_UNAVAILABLE",
		})
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Not found",
		})
	default:
		h.logger.LogError(err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// ===== HELPERS =====

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// HealthCheck reports service liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "grading-engine",
	})
}

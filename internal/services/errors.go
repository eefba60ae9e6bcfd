package services

import (
	"errors"
	"fmt"

	apperrors "github.com/classgrade/grading-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Input errors: the submission or exam failed referential-integrity
	// checks. Rejected before any evaluator runs.
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrUnknownQuestion   = errors.New("answer references a question not in the exam")
	ErrDuplicateAnswer   = errors.New("duplicate answer for one question")
	ErrExamMismatch      = errors.New("submission does not reference this exam")

	// Configuration errors: exam misconfiguration, rejected before grading.
	ErrConfiguration  = errors.New("exam configuration error")
	ErrZeroTotalPoints = errors.New("exam has zero total points")

	// Analytics errors.
	ErrEmptyBatch = errors.New("analytics requested on zero results")

	// Adapter errors. ServiceUnavailable is contained by evaluators and
	// recorded in results, never fatal to a grading call.
	ErrServiceUnavailable = errors.New("semantic grading service unavailable")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// InvalidSubmissionError describes why a submission was rejected.
type InvalidSubmissionError struct {
	ExamID     string `json:"exam_id"`
	StudentID  string `json:"student_id"`
	QuestionID string `json:"question_id,omitempty"`
	Reason     string `json:"reason"`
}

func (e *InvalidSubmissionError) Error() string {
	if e.QuestionID != "" {
		return fmt.Sprintf("invalid submission for exam %s by %s: %s (question %s)",
			e.ExamID, e.StudentID, e.Reason, e.QuestionID)
	}
	return fmt.Sprintf("invalid submission for exam %s by %s: %s", e.ExamID, e.StudentID, e.Reason)
}

func (e *InvalidSubmissionError) Unwrap() error { return ErrInvalidSubmission }

// ConfigurationError describes an exam misconfiguration.
type ConfigurationError struct {
	ExamID string `json:"exam_id"`
	Reason string `json:"reason"`
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for exam %s: %s", e.ExamID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// EmptyBatchError distinguishes "no submissions yet" from a zero-valued report.
type EmptyBatchError struct {
	ExamID string `json:"exam_id"`
}

func (e *EmptyBatchError) Error() string {
	return fmt.Sprintf("no graded submissions for exam %s", e.ExamID)
}

func (e *EmptyBatchError) Unwrap() error { return ErrEmptyBatch }

// ===== ERROR HELPERS =====

func NewInvalidSubmissionError(examID, studentID, questionID, reason string) *InvalidSubmissionError {
	return &InvalidSubmissionError{
		ExamID:     examID,
		StudentID:  studentID,
		QuestionID: questionID,
		Reason:     reason,
	}
}

func NewConfigurationError(examID, reason string) *ConfigurationError {
	return &ConfigurationError{ExamID: examID, Reason: reason}
}

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsInvalidSubmission checks if err represents rejected submission input
func IsInvalidSubmission(err error) bool {
	return errors.Is(err, ErrInvalidSubmission)
}

// IsConfiguration checks if err represents an exam misconfiguration
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsEmptyBatch checks if err represents analytics over zero results
func IsEmptyBatch(err error) bool {
	return errors.Is(err, ErrEmptyBatch)
}

// IsServiceUnavailable checks if err represents an unreachable grading service
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

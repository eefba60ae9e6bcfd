package repositories

import (
	"context"
	"errors"

	"github.com/classgrade/grading-engine/internal/models"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ResultFilters narrows ListByExam queries.
type ResultFilters struct {
	LetterGrade  *string
	DegradedOnly bool
	Limit        int
	Offset       int
}

// ResultRepository persists graded submissions.
type ResultRepository interface {
	// Save stores a graded submission, replacing any previous grade for
	// the same exam and student. Regrading is idempotent at the store.
	Save(ctx context.Context, result *models.SubmissionResult) error

	GetByStudent(ctx context.Context, examID, studentID string) (*models.SubmissionResult, error)
	ListByExam(ctx context.Context, examID string, filters ResultFilters) ([]*models.SubmissionResult, error)
	CountByExam(ctx context.Context, examID string) (int64, error)
	DeleteByExam(ctx context.Context, examID string) error
}

// ReportRepository persists generated analytics reports.
type ReportRepository interface {
	Save(ctx context.Context, report *models.AnalyticsReport) error
	GetLatest(ctx context.Context, examID string) (*models.AnalyticsReport, error)
}

// Repository bundles the stores one service layer needs.
type Repository interface {
	Results() ResultRepository
	Reports() ReportRepository
}

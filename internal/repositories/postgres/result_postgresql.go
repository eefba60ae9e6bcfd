package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/repositories"
)

// GradedSubmissionRecord is the storage row for one graded submission. The
// queryable columns are denormalized from the payload; Payload keeps the
// full result document.
type GradedSubmissionRecord struct {
	ID          uint   `gorm:"primaryKey"`
	ExamID      string `gorm:"index:idx_exam_student,unique;not null"`
	StudentID   string `gorm:"index:idx_exam_student,unique;not null"`
	StudentName string
	Percentage  float64
	LetterGrade string `gorm:"size:2"`
	Degraded    bool
	SubmittedAt time.Time
	GradedAt    time.Time
	Payload     datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GradedSubmissionRecord) TableName() string { return "graded_submissions" }

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r ResultPostgreSQL) Save(ctx context.Context, result *models.SubmissionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result payload: %w", err)
	}

	record := GradedSubmissionRecord{
		ExamID:      result.ExamID,
		StudentID:   result.StudentID,
		StudentName: result.StudentName,
		Percentage:  result.Percentage,
		LetterGrade: result.LetterGrade,
		Degraded:    result.Degraded,
		SubmittedAt: result.SubmittedAt,
		GradedAt:    result.GradedAt,
		Payload:     payload,
	}

	// Regrading replaces the stored grade for the same exam and student.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "exam_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"student_name", "percentage", "letter_grade", "degraded",
				"submitted_at", "graded_at", "payload", "updated_at",
			}),
		}).
		Create(&record).Error
}

func (r ResultPostgreSQL) GetByStudent(ctx context.Context, examID, studentID string) (*models.SubmissionResult, error) {
	var record GradedSubmissionRecord
	err := r.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return decodeResult(&record)
}

func (r ResultPostgreSQL) ListByExam(ctx context.Context, examID string, filters repositories.ResultFilters) ([]*models.SubmissionResult, error) {
	query := r.db.WithContext(ctx).
		Model(&GradedSubmissionRecord{}).
		Where("exam_id = ?", examID)

	if filters.LetterGrade != nil {
		query = query.Where("letter_grade = ?", *filters.LetterGrade)
	}
	if filters.DegradedOnly {
		query = query.Where("degraded = ?", true)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var records []GradedSubmissionRecord
	if err := query.Order("student_id asc").Find(&records).Error; err != nil {
		return nil, err
	}

	results := make([]*models.SubmissionResult, 0, len(records))
	for i := range records {
		result, err := decodeResult(&records[i])
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (r ResultPostgreSQL) CountByExam(ctx context.Context, examID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&GradedSubmissionRecord{}).
		Where("exam_id = ?", examID).
		Count(&count).Error
	return count, err
}

func (r ResultPostgreSQL) DeleteByExam(ctx context.Context, examID string) error {
	return r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Delete(&GradedSubmissionRecord{}).Error
}

func decodeResult(record *GradedSubmissionRecord) (*models.SubmissionResult, error) {
	var result models.SubmissionResult
	if err := json.Unmarshal(record.Payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result payload: %w", err)
	}
	return &result, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/repositories"
)

// AnalyticsReportRecord is the storage row for one generated report.
// Reports are append-only; GetLatest picks the newest generation.
type AnalyticsReportRecord struct {
	ID              uint   `gorm:"primaryKey"`
	ExamID          string `gorm:"index;not null"`
	SubmissionCount int
	MeanScore       float64
	PassingRate     float64
	GeneratedAt     time.Time      `gorm:"index"`
	Payload         datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time
}

func (AnalyticsReportRecord) TableName() string { return "analytics_reports" }

type ReportPostgreSQL struct {
	db *gorm.DB
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db}
}

func (r ReportPostgreSQL) Save(ctx context.Context, report *models.AnalyticsReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report payload: %w", err)
	}

	record := AnalyticsReportRecord{
		ExamID:          report.ExamID,
		SubmissionCount: report.SubmissionCount,
		MeanScore:       report.MeanScore,
		PassingRate:     report.PassingRate,
		GeneratedAt:     report.GeneratedAt,
		Payload:         payload,
	}
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r ReportPostgreSQL) GetLatest(ctx context.Context, examID string) (*models.AnalyticsReport, error) {
	var record AnalyticsReportRecord
	err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("generated_at desc").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}

	var report models.AnalyticsReport
	if err := json.Unmarshal(record.Payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report payload: %w", err)
	}
	return &report, nil
}

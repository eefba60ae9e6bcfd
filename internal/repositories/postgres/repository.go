package postgres

import (
	"gorm.io/gorm"

	"github.com/classgrade/grading-engine/internal/repositories"
)

type repository struct {
	results repositories.ResultRepository
	reports repositories.ReportRepository
}

// NewRepository bundles the postgres-backed stores.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		results: NewResultPostgreSQL(db),
		reports: NewReportPostgreSQL(db),
	}
}

func (r *repository) Results() repositories.ResultRepository { return r.results }
func (r *repository) Reports() repositories.ReportRepository { return r.reports }

// AutoMigrate creates or updates the storage schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&GradedSubmissionRecord{},
		&AnalyticsReportRecord{},
	)
}

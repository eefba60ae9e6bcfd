package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/utils"
)

// ExportService renders graded results and analytics reports as Excel
// workbooks.
type ExportService interface {
	ExportResults(ctx context.Context, exam *models.Exam, results []*models.SubmissionResult) ([]byte, error)
	ExportAnalytics(ctx context.Context, exam *models.Exam, report *models.AnalyticsReport) ([]byte, error)
}

type exportService struct {
	logger utils.Logger
}

func NewExportService(logger utils.Logger) ExportService {
	return &exportService{logger: logger}
}

// ExportResults writes one row per graded submission.
func (s *exportService) ExportResults(ctx context.Context, exam *models.Exam, results []*models.SubmissionResult) ([]byte, error) {
	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Student ID", "Student Name", "Submitted At", "Graded At",
		"Points Earned", "Points Possible", "Percentage", "Grade", "Degraded",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, result := range results {
		row := []interface{}{
			result.StudentID,
			result.StudentName,
			result.SubmittedAt.Format("2006-01-02 15:04:05"),
			result.GradedAt.Format("2006-01-02 15:04:05"),
			result.TotalPointsEarned,
			result.TotalPointsPossible,
			result.Percentage,
			result.LetterGrade,
			result.Degraded,
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported results workbook",
		"exam_id", exam.ID, "rows", len(results))
	return buf.Bytes(), nil
}

// ExportAnalytics writes a three-sheet workbook: summary, per-question
// stats, leaderboard.
func (s *exportService) ExportAnalytics(ctx context.Context, exam *models.Exam, report *models.AnalyticsReport) ([]byte, error) {
	f := excelize.NewFile()

	if err := s.writeSummarySheet(f, exam, report); err != nil {
		return nil, err
	}
	if err := s.writeQuestionSheet(f, report); err != nil {
		return nil, err
	}
	if err := s.writeLeaderboardSheet(f, report); err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported analytics workbook", "exam_id", report.ExamID)
	return buf.Bytes(), nil
}

func (s *exportService) writeSummarySheet(f *excelize.File, exam *models.Exam, report *models.AnalyticsReport) error {
	sheetName := "Summary"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	rows := [][]interface{}{
		{"Exam", exam.Title},
		{"Subject", exam.Subject},
		{"Submissions", report.SubmissionCount},
		{"Mean Score", report.MeanScore},
		{"Median Score", report.MedianScore},
		{"Std Dev", report.StdDev},
		{"Min Score", report.MinScore},
		{"Max Score", report.MaxScore},
		{"Passing Count", report.PassingCount},
		{"Passing Rate", report.PassingRate},
	}
	for _, grade := range models.LetterGrades {
		rows = append(rows, []interface{}{
			fmt.Sprintf("Grade %s", grade), report.GradeDistribution[grade],
		})
	}

	for rowIndex, row := range rows {
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+1)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

func (s *exportService) writeQuestionSheet(f *excelize.File, report *models.AnalyticsReport) error {
	sheetName := "Questions"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{
		"Question ID", "Type", "Respondents", "Correct", "Difficulty", "Common Mistakes",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, stat := range report.QuestionStats {
		row := []interface{}{
			stat.QuestionID,
			string(stat.QuestionType),
			stat.Respondents,
			stat.CorrectCount,
		}
		if stat.Difficulty != nil {
			row = append(row, *stat.Difficulty)
		} else {
			row = append(row, "n/a")
		}

		mistakes := ""
		for i, m := range stat.CommonMistakes {
			if i > 0 {
				mistakes += "; "
			}
			mistakes += fmt.Sprintf("%s (%d)", m.Response, m.Count)
		}
		row = append(row, mistakes)

		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

func (s *exportService) writeLeaderboardSheet(f *excelize.File, report *models.AnalyticsReport) error {
	sheetName := "Leaderboard"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{"Rank", "Student ID", "Student Name", "Percentage", "Grade", "Submitted At"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, entry := range report.Leaderboard {
		row := []interface{}{
			entry.Rank,
			entry.StudentID,
			entry.StudentName,
			entry.Percentage,
			entry.LetterGrade,
			entry.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

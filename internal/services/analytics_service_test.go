package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/utils"
)

func gradedResult(studentID string, pct float64, submittedAt time.Time, questionResults ...models.QuestionResult) *models.SubmissionResult {
	return &models.SubmissionResult{
		ExamID:          "exam-1",
		StudentID:       studentID,
		StudentName:     "Student " + studentID,
		SubmittedAt:     submittedAt,
		GradedAt:        submittedAt.Add(time.Minute),
		Percentage:      pct,
		LetterGrade:     models.LetterForPercentage(pct),
		QuestionResults: questionResults,
	}
}

func TestAnalyticsService_EmptyBatch(t *testing.T) {
	service := NewAnalyticsService(AnalyticsOptions{}, nil, utils.NewDevelopmentLogger())

	report, err := service.ComputeAnalytics(context.Background(), testExam(), nil)
	assert.Nil(t, report)
	assert.True(t, IsEmptyBatch(err))
}

func TestAnalyticsService_ScoreStatistics(t *testing.T) {
	service := NewAnalyticsService(AnalyticsOptions{}, nil, utils.NewDevelopmentLogger())
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("two submissions", func(t *testing.T) {
		results := []*models.SubmissionResult{
			gradedResult("s1", 80, base),
			gradedResult("s2", 90, base.Add(time.Minute)),
		}
		report, err := service.ComputeAnalytics(context.Background(), testExam(), results)
		require.NoError(t, err)

		assert.Equal(t, 2, report.SubmissionCount)
		assert.Equal(t, 85.0, report.MeanScore)
		assert.Equal(t, 85.0, report.MedianScore)
		assert.Equal(t, 5.0, report.StdDev)
		assert.Equal(t, 80.0, report.MinScore)
		assert.Equal(t, 90.0, report.MaxScore)
		assert.Equal(t, 1, report.GradeDistribution["A"])
		assert.Equal(t, 1, report.GradeDistribution["B"])
		assert.Equal(t, 0, report.GradeDistribution["F"])
	})

	t.Run("single submission has zero deviation", func(t *testing.T) {
		results := []*models.SubmissionResult{gradedResult("s1", 72.5, base)}
		report, err := service.ComputeAnalytics(context.Background(), testExam(), results)
		require.NoError(t, err)

		assert.Equal(t, 72.5, report.MeanScore)
		assert.Equal(t, 72.5, report.MedianScore)
		assert.Zero(t, report.StdDev)
	})

	t.Run("median interpolates for even counts", func(t *testing.T) {
		results := []*models.SubmissionResult{
			gradedResult("s1", 50, base),
			gradedResult("s2", 60, base),
			gradedResult("s3", 70, base),
			gradedResult("s4", 100, base),
		}
		report, err := service.ComputeAnalytics(context.Background(), testExam(), results)
		require.NoError(t, err)
		assert.Equal(t, 65.0, report.MedianScore)
	})

	t.Run("passing rate uses the exam threshold", func(t *testing.T) {
		results := []*models.SubmissionResult{
			gradedResult("s1", 59.9, base),
			gradedResult("s2", 60, base),
			gradedResult("s3", 95, base),
		}
		report, err := service.ComputeAnalytics(context.Background(), testExam(), results)
		require.NoError(t, err)

		assert.Equal(t, 2, report.PassingCount)
		assert.InDelta(t, 66.666, report.PassingRate, 0.001)
	})
}

func TestAnalyticsService_QuestionStats(t *testing.T) {
	service := NewAnalyticsService(AnalyticsOptions{}, nil, utils.NewDevelopmentLogger())
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	results := []*models.SubmissionResult{
		gradedResult("s1", 50, base,
			models.QuestionResult{QuestionID: "q1", StudentAnswer: "Paris", PointsEarned: 2, PointsPossible: 2, Correct: true},
			models.QuestionResult{QuestionID: "q2", StudentAnswer: "false", PointsEarned: 0, PointsPossible: 1},
			models.QuestionResult{QuestionID: "q3", PointsPossible: 2, Marker: models.MarkerUnanswered},
		),
		gradedResult("s2", 75, base,
			models.QuestionResult{QuestionID: "q1", StudentAnswer: "LONDON", PointsEarned: 0, PointsPossible: 2},
			models.QuestionResult{QuestionID: "q2", StudentAnswer: "False ", PointsEarned: 0, PointsPossible: 1},
			models.QuestionResult{QuestionID: "q3", PointsPossible: 2, Marker: models.MarkerUnanswered},
		),
	}

	report, err := service.ComputeAnalytics(context.Background(), testExam(), results)
	require.NoError(t, err)
	require.Len(t, report.QuestionStats, 3)

	t.Run("hardest question sorts first", func(t *testing.T) {
		assert.Equal(t, "q2", report.QuestionStats[0].QuestionID)
		require.NotNil(t, report.QuestionStats[0].Difficulty)
		assert.Zero(t, *report.QuestionStats[0].Difficulty)
	})

	t.Run("question nobody answered has nil difficulty and sorts last", func(t *testing.T) {
		last := report.QuestionStats[2]
		assert.Equal(t, "q3", last.QuestionID)
		assert.Nil(t, last.Difficulty)
		assert.Zero(t, last.Respondents)
	})

	t.Run("mistakes cluster on normalized responses", func(t *testing.T) {
		var q2 *models.QuestionStat
		for i := range report.QuestionStats {
			if report.QuestionStats[i].QuestionID == "q2" {
				q2 = &report.QuestionStats[i]
			}
		}
		require.NotNil(t, q2)
		require.Len(t, q2.CommonMistakes, 1, `"false" and "False " are one cluster`)
		assert.Equal(t, "false", q2.CommonMistakes[0].Response)
		assert.Equal(t, 2, q2.CommonMistakes[0].Count)
	})

	t.Run("correct answers are not mistakes", func(t *testing.T) {
		q1 := report.QuestionStats[1]
		require.Equal(t, "q1", q1.QuestionID)
		require.Len(t, q1.CommonMistakes, 1)
		assert.Equal(t, "london", q1.CommonMistakes[0].Response)
	})
}

func TestAnalyticsService_Leaderboard(t *testing.T) {
	service := NewAnalyticsService(AnalyticsOptions{}, nil, utils.NewDevelopmentLogger())
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	results := []*models.SubmissionResult{
		gradedResult("s1", 90, base.Add(2*time.Hour)),
		gradedResult("s2", 90, base), // same score, earlier submission
		gradedResult("s3", 95, base.Add(time.Hour)),
	}

	report, err := service.ComputeAnalytics(context.Background(), testExam(), results)
	require.NoError(t, err)
	require.Len(t, report.Leaderboard, 3)

	assert.Equal(t, "s3", report.Leaderboard[0].StudentID)
	assert.Equal(t, 1, report.Leaderboard[0].Rank)
	assert.Equal(t, "s2", report.Leaderboard[1].StudentID, "earlier submission wins the tie")
	assert.Equal(t, "s1", report.Leaderboard[2].StudentID)
}

func TestAnalyticsService_OrderIndependence(t *testing.T) {
	service := NewAnalyticsService(AnalyticsOptions{}, nil, utils.NewDevelopmentLogger())
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	results := []*models.SubmissionResult{
		gradedResult("s1", 40, base,
			models.QuestionResult{QuestionID: "q1", StudentAnswer: "a", PointsEarned: 0, PointsPossible: 2},
		),
		gradedResult("s2", 80, base.Add(time.Minute),
			models.QuestionResult{QuestionID: "q1", StudentAnswer: "b", PointsEarned: 0, PointsPossible: 2},
		),
		gradedResult("s3", 100, base.Add(2*time.Minute),
			models.QuestionResult{QuestionID: "q1", StudentAnswer: "Paris", PointsEarned: 2, PointsPossible: 2, Correct: true},
		),
	}
	reversed := []*models.SubmissionResult{results[2], results[1], results[0]}

	forward, err := service.ComputeAnalytics(context.Background(), testExam(), results)
	require.NoError(t, err)
	backward, err := service.ComputeAnalytics(context.Background(), testExam(), reversed)
	require.NoError(t, err)

	forward.GeneratedAt = backward.GeneratedAt
	assert.Equal(t, forward, backward)
}

func TestAnalyticsService_TopicStats(t *testing.T) {
	service := NewAnalyticsService(AnalyticsOptions{}, nil, utils.NewDevelopmentLogger())
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	results := []*models.SubmissionResult{
		gradedResult("s1", 50, base,
			models.QuestionResult{QuestionID: "q1", StudentAnswer: "Paris", PointsEarned: 2, PointsPossible: 2, Correct: true},
			models.QuestionResult{QuestionID: "q3", StudentAnswer: "5", PointsEarned: 0, PointsPossible: 2},
		),
	}

	report, err := service.ComputeAnalytics(context.Background(), testExam(), results)
	require.NoError(t, err)
	require.Contains(t, report.TopicStats, "geography")
	require.Contains(t, report.TopicStats, "arithmetic")

	geo := report.TopicStats["geography"]
	assert.Equal(t, 100.0, geo.Accuracy)
	assert.Equal(t, 100.0, geo.AverageScore)
	assert.Equal(t, 1, geo.Answered)

	math := report.TopicStats["arithmetic"]
	assert.Zero(t, math.Accuracy)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/grading-engine/internal/ai"
	"github.com/classgrade/grading-engine/internal/events"
	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/utils"
)

func testExam() *models.Exam {
	return &models.Exam{
		ID:           "exam-1",
		Title:        "Biology Midterm",
		Subject:      "Biology",
		PassingScore: 60,
		Questions: []models.Question{
			{ID: "q1", Text: "Capital of France?", Type: models.MultipleChoice, CorrectAnswer: "Paris", Points: 2, Topics: []string{"geography"}},
			{ID: "q2", Text: "The sky is blue.", Type: models.TrueFalse, CorrectAnswer: "true", Points: 1},
			{ID: "q3", Text: "2+2?", Type: models.Numerical, CorrectAnswer: "4", Points: 2, Topics: []string{"arithmetic"}},
		},
	}
}

func testSubmission(answers ...models.Answer) *models.Submission {
	return &models.Submission{
		ExamID:      "exam-1",
		StudentID:   "s1",
		StudentName: "Alex",
		Answers:     answers,
		SubmittedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestGradingService_GradeSubmission(t *testing.T) {
	logger := utils.NewDevelopmentLogger()
	evaluator := NewEvaluator(nil, logger)
	service := NewGradingService(evaluator, nil, nil, logger)

	t.Run("all correct", func(t *testing.T) {
		sub := testSubmission(
			models.Answer{QuestionID: "q1", Response: "Paris"},
			models.Answer{QuestionID: "q2", Response: "yes"},
			models.Answer{QuestionID: "q3", Response: "4"},
		)
		result, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.NoError(t, err)

		assert.Equal(t, 5.0, result.TotalPointsEarned)
		assert.Equal(t, 5.0, result.TotalPointsPossible)
		assert.Equal(t, 100.0, result.Percentage)
		assert.Equal(t, "A", result.LetterGrade)
		assert.False(t, result.Degraded)
		assert.Len(t, result.QuestionResults, 3)
		assert.NotEmpty(t, result.OverallFeedback)
	})

	t.Run("unanswered question earns zero with marker", func(t *testing.T) {
		sub := testSubmission(
			models.Answer{QuestionID: "q1", Response: "Paris"},
		)
		result, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.NoError(t, err)

		assert.Equal(t, 2.0, result.TotalPointsEarned)
		assert.Len(t, result.QuestionResults, 3)

		qr := result.GetQuestionResult("q2")
		require.NotNil(t, qr)
		assert.Zero(t, qr.PointsEarned)
		assert.Equal(t, models.MarkerUnanswered, qr.Marker)
		assert.NotEmpty(t, qr.Feedback)
	})

	t.Run("results follow exam order regardless of answer order", func(t *testing.T) {
		sub := testSubmission(
			models.Answer{QuestionID: "q3", Response: "4"},
			models.Answer{QuestionID: "q1", Response: "Paris"},
			models.Answer{QuestionID: "q2", Response: "true"},
		)
		result, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.NoError(t, err)

		ids := []string{}
		for _, qr := range result.QuestionResults {
			ids = append(ids, qr.QuestionID)
		}
		assert.Equal(t, []string{"q1", "q2", "q3"}, ids)
	})

	t.Run("grading is repeatable", func(t *testing.T) {
		sub := testSubmission(
			models.Answer{QuestionID: "q1", Response: "Paris"},
			models.Answer{QuestionID: "q2", Response: "no"},
		)
		first, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.NoError(t, err)
		second, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.NoError(t, err)

		assert.Equal(t, first.TotalPointsEarned, second.TotalPointsEarned)
		assert.Equal(t, first.LetterGrade, second.LetterGrade)
		assert.Equal(t, first.QuestionResults, second.QuestionResults)
	})

	t.Run("type breakdown aggregates per question type", func(t *testing.T) {
		sub := testSubmission(
			models.Answer{QuestionID: "q1", Response: "London"},
			models.Answer{QuestionID: "q2", Response: "true"},
			models.Answer{QuestionID: "q3", Response: "4"},
		)
		result, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.NoError(t, err)

		mc := result.TypeBreakdown[models.MultipleChoice]
		assert.Equal(t, 1, mc.Answered)
		assert.Equal(t, 0, mc.Correct)
		assert.Equal(t, 2.0, mc.PointsPossible)

		tf := result.TypeBreakdown[models.TrueFalse]
		assert.Equal(t, 1, tf.Correct)
	})
}

func TestGradingService_InputValidation(t *testing.T) {
	logger := utils.NewDevelopmentLogger()
	service := NewGradingService(NewEvaluator(nil, logger), nil, nil, logger)

	t.Run("exam id mismatch", func(t *testing.T) {
		sub := testSubmission()
		sub.ExamID = "other-exam"
		_, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		assert.True(t, IsInvalidSubmission(err))
	})

	t.Run("unknown question reference", func(t *testing.T) {
		sub := testSubmission(models.Answer{QuestionID: "ghost", Response: "x"})
		_, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.Error(t, err)
		assert.True(t, IsInvalidSubmission(err))

		var invalid *InvalidSubmissionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "ghost", invalid.QuestionID)
	})

	t.Run("duplicate answer", func(t *testing.T) {
		sub := testSubmission(
			models.Answer{QuestionID: "q1", Response: "Paris"},
			models.Answer{QuestionID: "q1", Response: "London"},
		)
		_, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		assert.True(t, IsInvalidSubmission(err))
	})

	t.Run("zero total points is a configuration error", func(t *testing.T) {
		exam := testExam()
		for i := range exam.Questions {
			exam.Questions[i].Points = 0
		}
		sub := testSubmission(models.Answer{QuestionID: "q1", Response: "Paris"})
		_, err := service.GradeSubmission(context.Background(), exam, sub, models.DefaultGradingConfig())
		assert.True(t, IsConfiguration(err))
	})

	t.Run("strictness out of range is a configuration error", func(t *testing.T) {
		cfg := models.DefaultGradingConfig()
		cfg.Strictness = 1.5
		sub := testSubmission(models.Answer{QuestionID: "q1", Response: "Paris"})
		_, err := service.GradeSubmission(context.Background(), testExam(), sub, cfg)
		assert.True(t, IsConfiguration(err))
	})

	t.Run("input errors reject before any evaluation", func(t *testing.T) {
		sub := testSubmission(
			models.Answer{QuestionID: "q1", Response: "Paris"},
			models.Answer{QuestionID: "ghost", Response: "x"},
		)
		result, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		assert.Nil(t, result)
		assert.Error(t, err)
	})
}

func TestGradingService_DegradedIsolation(t *testing.T) {
	logger := utils.NewDevelopmentLogger()
	service := NewGradingService(NewEvaluator(nil, logger), nil, nil, logger)

	// An unrecognized question type fails its own evaluation but never the
	// submission.
	exam := testExam()
	exam.Questions = append(exam.Questions, models.Question{
		ID: "q4", Text: "???", Type: models.QuestionType("matching"), CorrectAnswer: "x", Points: 3,
	})
	sub := testSubmission(
		models.Answer{QuestionID: "q1", Response: "Paris"},
		models.Answer{QuestionID: "q2", Response: "true"},
		models.Answer{QuestionID: "q3", Response: "4"},
		models.Answer{QuestionID: "q4", Response: "whatever"},
	)

	result, err := service.GradeSubmission(context.Background(), exam, sub, models.DefaultGradingConfig())
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, 5.0, result.TotalPointsEarned)
	assert.Equal(t, 8.0, result.TotalPointsPossible)

	qr := result.GetQuestionResult("q4")
	require.NotNil(t, qr)
	assert.Zero(t, qr.PointsEarned)
	assert.Equal(t, models.MarkerError, qr.Marker)
}

func TestGradingService_OverallFeedback(t *testing.T) {
	logger := utils.NewDevelopmentLogger()

	t.Run("summarizer output is used when available", func(t *testing.T) {
		semantic := &stubSemanticGrader{
			summarizeFn: func(ctx context.Context, req ai.SummaryRequest) (string, error) {
				assert.Equal(t, "Biology Midterm", req.ExamTitle)
				assert.Len(t, req.QuestionData, 3)
				return "Strong on geography, review arithmetic.", nil
			},
		}
		service := NewGradingService(NewEvaluator(semantic, logger), semantic, nil, logger)

		sub := testSubmission(
			models.Answer{QuestionID: "q1", Response: "Paris"},
			models.Answer{QuestionID: "q2", Response: "true"},
			models.Answer{QuestionID: "q3", Response: "7"},
		)
		result, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.NoError(t, err)
		assert.Equal(t, "Strong on geography, review arithmetic.", result.OverallFeedback)
	})

	t.Run("local synthesis names the weakest questions", func(t *testing.T) {
		service := NewGradingService(NewEvaluator(nil, logger), nil, nil, logger)

		sub := testSubmission(
			models.Answer{QuestionID: "q1", Response: "London"},
			models.Answer{QuestionID: "q2", Response: "true"},
			models.Answer{QuestionID: "q3", Response: "4"},
		)
		result, err := service.GradeSubmission(context.Background(), testExam(), sub, models.DefaultGradingConfig())
		require.NoError(t, err)
		assert.Contains(t, result.OverallFeedback, "q1")
		assert.Contains(t, result.OverallFeedback, "geography")
	})
}

func TestGradingService_GradeBatch(t *testing.T) {
	logger := utils.NewDevelopmentLogger()
	publisher := events.NewMockEventPublisher(utils.ToSlogLogger(logger))
	service := NewGradingService(NewEvaluator(nil, logger), nil, publisher, logger)

	subs := []*models.Submission{
		testSubmission(models.Answer{QuestionID: "q1", Response: "Paris"}),
		{
			ExamID: "exam-1", StudentID: "s2", StudentName: "Blair",
			Answers:     []models.Answer{{QuestionID: "ghost", Response: "x"}},
			SubmittedAt: time.Now(),
		},
		testSubmission(models.Answer{QuestionID: "q2", Response: "true"}),
	}
	subs[2].StudentID = "s3"

	results, err := service.GradeBatch(context.Background(), testExam(), subs, models.DefaultGradingConfig(), 2)
	require.Error(t, err, "invalid submission surfaces in the joined error")
	require.Len(t, results, 3)

	assert.NotNil(t, results[0])
	assert.Nil(t, results[1], "rejected submission yields no result")
	assert.NotNil(t, results[2])
	assert.True(t, IsInvalidSubmission(err))

	assert.Len(t, publisher.GetPublishedEvents(), 2, "one event per graded submission")
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/classgrade/grading-engine/internal/ai"
	"github.com/classgrade/grading-engine/internal/events"
	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/utils"
)

// weakestFeedbackCount is how many low-scoring questions the locally
// synthesized overall feedback calls out.
const weakestFeedbackCount = 3

// GradingService grades whole submissions against an exam.
type GradingService interface {
	// GradeSubmission grades one submission. Input and configuration
	// errors are returned before any evaluator runs; evaluator failures
	// are contained per question and surface as a degraded result.
	GradeSubmission(ctx context.Context, exam *models.Exam, submission *models.Submission, cfg models.GradingConfig) (*models.SubmissionResult, error)

	// GradeBatch grades submissions concurrently, at most concurrency at
	// a time. The returned slice is index-aligned with the input; entries
	// whose submission was rejected are nil and their errors joined.
	GradeBatch(ctx context.Context, exam *models.Exam, submissions []*models.Submission, cfg models.GradingConfig, concurrency int) ([]*models.SubmissionResult, error)
}

type gradingService struct {
	evaluator *Evaluator
	semantic  ai.SemanticGrader
	publisher events.EventPublisher
	logger    utils.Logger
}

// NewGradingService builds the submission grader. semantic and publisher
// may be nil; grading then runs fully local and emits no events.
func NewGradingService(evaluator *Evaluator, semantic ai.SemanticGrader, publisher events.EventPublisher, logger utils.Logger) GradingService {
	return &gradingService{
		evaluator: evaluator,
		semantic:  semantic,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *gradingService) GradeSubmission(ctx context.Context, exam *models.Exam, submission *models.Submission, cfg models.GradingConfig) (*models.SubmissionResult, error) {
	if err := s.validateInput(exam, submission, cfg); err != nil {
		return nil, err
	}

	result := &models.SubmissionResult{
		ExamID:        exam.ID,
		StudentID:     submission.StudentID,
		StudentName:   submission.StudentName,
		SubmittedAt:   submission.SubmittedAt,
		GradedAt:      time.Now().UTC(),
		TypeBreakdown: make(map[models.QuestionType]models.TypePerformance),
	}

	// Questions grade in exam order so results are stable regardless of
	// answer order in the submission.
	for i := range exam.Questions {
		q := &exam.Questions[i]

		var qr models.QuestionResult
		answer := submission.GetAnswer(q.ID)
		if answer == nil {
			qr = models.QuestionResult{
				QuestionID:     q.ID,
				QuestionType:   q.Type,
				PointsPossible: q.Points,
				Feedback:       "Question was not answered",
				Marker:         models.MarkerUnanswered,
			}
		} else {
			qr = s.safeEvaluate(ctx, q, answer.Response, cfg)
		}

		if qr.Marker == models.MarkerError {
			result.Degraded = true
		}

		result.QuestionResults = append(result.QuestionResults, qr)
		result.TotalPointsEarned += qr.PointsEarned
		result.TotalPointsPossible += qr.PointsPossible

		perf := result.TypeBreakdown[q.Type]
		if answer != nil {
			perf.Answered++
		}
		if qr.Correct {
			perf.Correct++
		}
		perf.PointsEarned += qr.PointsEarned
		perf.PointsPossible += qr.PointsPossible
		result.TypeBreakdown[q.Type] = perf
	}

	result.Percentage = result.TotalPointsEarned / result.TotalPointsPossible * 100
	result.LetterGrade = models.LetterForPercentage(result.Percentage)
	result.OverallFeedback = s.overallFeedback(ctx, exam, result, cfg)

	s.publishGraded(ctx, result)
	return result, nil
}

func (s *gradingService) GradeBatch(ctx context.Context, exam *models.Exam, submissions []*models.Submission, cfg models.GradingConfig, concurrency int) ([]*models.SubmissionResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*models.SubmissionResult, len(submissions))
	errs := make([]error, len(submissions))

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, sub := range submissions {
		wg.Add(1)
		go func(i int, sub *models.Submission) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := s.GradeSubmission(ctx, exam, sub, cfg)
			results[i] = res
			errs[i] = err
		}(i, sub)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

// validateInput rejects submissions and configurations the grader cannot
// honor. Nothing is evaluated until this passes.
func (s *gradingService) validateInput(exam *models.Exam, submission *models.Submission, cfg models.GradingConfig) error {
	if submission.ExamID != exam.ID {
		return NewInvalidSubmissionError(exam.ID, submission.StudentID, "",
			fmt.Sprintf("submission targets exam %s", submission.ExamID))
	}

	if exam.TotalPoints() <= 0 {
		return NewConfigurationError(exam.ID, "exam has zero total points")
	}
	if cfg.Strictness < 0 || cfg.Strictness > 1 {
		return NewConfigurationError(exam.ID,
			fmt.Sprintf("strictness %g outside [0,1]", cfg.Strictness))
	}
	for i := range exam.Questions {
		q := &exam.Questions[i]
		if q.Points < 0 {
			return NewConfigurationError(exam.ID,
				fmt.Sprintf("question %s has negative points", q.ID))
		}
		if ov := q.Overrides; ov != nil && ov.Strictness != nil {
			if *ov.Strictness < 0 || *ov.Strictness > 1 {
				return NewConfigurationError(exam.ID,
					fmt.Sprintf("question %s strictness override outside [0,1]", q.ID))
			}
		}
	}

	seen := make(map[string]bool, len(submission.Answers))
	for _, a := range submission.Answers {
		if exam.GetQuestion(a.QuestionID) == nil {
			return NewInvalidSubmissionError(exam.ID, submission.StudentID, a.QuestionID,
				"answer references a question not in the exam")
		}
		if seen[a.QuestionID] {
			return NewInvalidSubmissionError(exam.ID, submission.StudentID, a.QuestionID,
				"duplicate answer for one question")
		}
		seen[a.QuestionID] = true
	}
	return nil
}

// safeEvaluate contains evaluator panics: a crashing evaluator costs its
// question zero points, never the whole submission.
func (s *gradingService) safeEvaluate(ctx context.Context, q *models.Question, response string, cfg models.GradingConfig) (qr models.QuestionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Evaluator panic contained",
				"question_id", q.ID, "question_type", q.Type, "panic", r)
			qr = models.QuestionResult{
				QuestionID:     q.ID,
				QuestionType:   q.Type,
				StudentAnswer:  response,
				PointsPossible: q.Points,
				Feedback:       "Question could not be evaluated",
				Marker:         models.MarkerError,
			}
		}
	}()
	return s.evaluator.Evaluate(ctx, q, response, cfg)
}

// overallFeedback synthesizes the submission-level summary, preferring the
// semantic service when enabled and falling back to a local synthesis.
func (s *gradingService) overallFeedback(ctx context.Context, exam *models.Exam, result *models.SubmissionResult, cfg models.GradingConfig) string {
	if cfg.AIGradingEnabled && s.semantic != nil {
		req := ai.SummaryRequest{
			ExamTitle:   exam.Title,
			TotalEarned: result.TotalPointsEarned,
			TotalMax:    result.TotalPointsPossible,
		}
		for i := range result.QuestionResults {
			qr := &result.QuestionResults[i]
			req.QuestionData = append(req.QuestionData, ai.QuestionBrief{
				QuestionID: qr.QuestionID,
				Correct:    qr.Correct,
				Earned:     qr.PointsEarned,
				Possible:   qr.PointsPossible,
			})
		}

		summary, err := s.semantic.Summarize(ctx, req)
		if err != nil {
			s.logger.Warn("Summary generation failed, using local synthesis",
				"exam_id", exam.ID, "student_id", result.StudentID, "error", err)
		} else if summary != "" {
			return summary
		}
	}
	return localOverallFeedback(exam, result)
}

// localOverallFeedback builds the summary without the semantic service:
// a banded opener plus the weakest questions by earned fraction.
func localOverallFeedback(exam *models.Exam, result *models.SubmissionResult) string {
	var b strings.Builder

	switch {
	case result.Percentage >= 90:
		b.WriteString("Excellent work! You have a strong grasp of the material.")
	case result.Percentage >= 80:
		b.WriteString("Good job! A few areas could use review.")
	case result.Percentage >= 70:
		b.WriteString("Fair performance. Consider reviewing the topics you missed.")
	case result.Percentage >= 60:
		b.WriteString("You passed, but significant review is recommended.")
	default:
		b.WriteString("This exam revealed gaps in understanding. A thorough review is recommended.")
	}

	weakest := make([]*models.QuestionResult, 0, len(result.QuestionResults))
	for i := range result.QuestionResults {
		if qr := &result.QuestionResults[i]; !qr.Correct {
			weakest = append(weakest, qr)
		}
	}
	sort.SliceStable(weakest, func(i, j int) bool {
		return weakest[i].Fraction() < weakest[j].Fraction()
	})
	if len(weakest) > weakestFeedbackCount {
		weakest = weakest[:weakestFeedbackCount]
	}

	if len(weakest) > 0 {
		b.WriteString(" Focus areas:")
		for _, qr := range weakest {
			topics := ""
			if q := exam.GetQuestion(qr.QuestionID); q != nil && len(q.Topics) > 0 {
				topics = fmt.Sprintf(" (%s)", strings.Join(q.Topics, ", "))
			}
			b.WriteString(fmt.Sprintf(" question %s%s scored %.1f/%.1f;",
				qr.QuestionID, topics, qr.PointsEarned, qr.PointsPossible))
		}
	}
	return strings.TrimSuffix(b.String(), ";")
}

func (s *gradingService) publishGraded(ctx context.Context, result *models.SubmissionResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGradingCompleted(ctx, result); err != nil {
		s.logger.Warn("Failed to publish grading event",
			"exam_id", result.ExamID, "student_id", result.StudentID, "error", err)
	}
}

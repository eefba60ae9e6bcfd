package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/classgrade/grading-engine/internal/ai"
	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/utils"
)

const (
	// maxErrorRatio is the normalized numerical error beyond which partial
	// credit drops to zero.
	maxErrorRatio = 4.0

	// partialCreditCap keeps partial numerical credit strictly below full
	// credit so the correctness flag stays tied to an exact-tolerance hit.
	partialCreditCap = 0.9

	// aiConfidenceFloor is the minimum adapter confidence at which an AI
	// second opinion overrides the lexical score.
	aiConfidenceFloor = 0.5

	// shortAnswerPartialFloor is the similarity below which a short answer
	// earns nothing even with partial credit enabled.
	shortAnswerPartialFloor = 0.4

	minCodeLength = 10
)

type evaluatorFunc func(ctx context.Context, q *models.Question, response string, cfg models.GradingConfig) models.QuestionResult

// Evaluator scores a single answer according to its question type. The type
// set is closed: dispatch goes through a fixed table and adding a type is a
// code change, not runtime extension.
type Evaluator struct {
	semantic ai.SemanticGrader
	logger   utils.Logger
	table    map[models.QuestionType]evaluatorFunc
}

// NewEvaluator builds an evaluator. semantic may be nil, in which case
// AI-assisted types fall back to local heuristics or manual-review results.
func NewEvaluator(semantic ai.SemanticGrader, logger utils.Logger) *Evaluator {
	e := &Evaluator{
		semantic: semantic,
		logger:   logger,
	}
	e.table = map[models.QuestionType]evaluatorFunc{
		models.MultipleChoice: e.evaluateChoice,
		models.TrueFalse:      e.evaluateTrueFalse,
		models.Numerical:      e.evaluateNumerical,
		models.ShortAnswer:    e.evaluateShortAnswer,
		models.Essay:          e.evaluateEssay,
		models.Code:           e.evaluateCode,
	}
	return e
}

// Evaluate scores one response. The returned result always satisfies the
// evaluator contract: points clamped to [0, q.Points], correctness iff full
// credit, non-empty feedback.
func (e *Evaluator) Evaluate(ctx context.Context, q *models.Question, response string, cfg models.GradingConfig) models.QuestionResult {
	if strings.TrimSpace(response) == "" {
		return e.finalize(q, models.QuestionResult{
			StudentAnswer: response,
			Feedback:      "No answer provided",
			Marker:        models.MarkerNoResponse,
		})
	}

	eval, ok := e.table[q.Type]
	if !ok {
		return e.finalize(q, models.QuestionResult{
			StudentAnswer: response,
			Feedback:      fmt.Sprintf("Unsupported question type: %s", q.Type),
			Marker:        models.MarkerError,
		})
	}
	return e.finalize(q, eval(ctx, q, response, cfg))
}

// finalize enforces the evaluator contract on a raw result.
func (e *Evaluator) finalize(q *models.Question, res models.QuestionResult) models.QuestionResult {
	res.QuestionID = q.ID
	res.QuestionType = q.Type
	res.PointsPossible = q.Points

	if res.PointsEarned < 0 {
		res.PointsEarned = 0
	}
	if res.PointsEarned > q.Points {
		res.PointsEarned = q.Points
	}
	res.Correct = res.PointsEarned == q.Points

	if res.Feedback == "" {
		if res.Correct {
			res.Feedback = "Correct!"
		} else {
			res.Feedback = "Incorrect"
		}
	}
	return res
}

// ===== MULTIPLE CHOICE / TRUE-FALSE =====

func (e *Evaluator) evaluateChoice(_ context.Context, q *models.Question, response string, _ models.GradingConfig) models.QuestionResult {
	res := models.QuestionResult{StudentAnswer: response, Confidence: 1.0}

	if models.NormalizeResponse(response) == models.NormalizeResponse(q.CorrectAnswer) {
		res.PointsEarned = q.Points
		res.Feedback = "Correct!"
	} else {
		res.Feedback = fmt.Sprintf("Incorrect. The correct answer is: %s", q.CorrectAnswer)
	}
	return res
}

func (e *Evaluator) evaluateTrueFalse(_ context.Context, q *models.Question, response string, _ models.GradingConfig) models.QuestionResult {
	res := models.QuestionResult{StudentAnswer: response, Confidence: 1.0}

	correct, ok := models.ParseBoolResponse(q.CorrectAnswer)
	if !ok {
		res.Feedback = "Invalid correct answer format"
		res.Marker = models.MarkerError
		return res
	}
	student, ok := models.ParseBoolResponse(response)
	if !ok {
		res.Feedback = "Invalid answer format. Please answer True or False"
		return res
	}

	if student == correct {
		res.PointsEarned = q.Points
		res.Feedback = "Correct!"
	} else {
		res.Feedback = fmt.Sprintf("Incorrect. The correct answer is: %s", q.CorrectAnswer)
	}
	return res
}

// ===== NUMERICAL =====

func (e *Evaluator) evaluateNumerical(_ context.Context, q *models.Question, response string, cfg models.GradingConfig) models.QuestionResult {
	res := models.QuestionResult{StudentAnswer: response, Confidence: 1.0}

	correct, err := strconv.ParseFloat(strings.TrimSpace(q.CorrectAnswer), 64)
	if err != nil {
		res.Feedback = "Invalid correct answer format"
		res.Marker = models.MarkerError
		return res
	}
	student, err := strconv.ParseFloat(strings.TrimSpace(response), 64)
	if err != nil {
		res.Feedback = "non-numeric response"
		return res
	}

	// An exact hit is always full credit, whatever the tolerance.
	if student == correct {
		res.PointsEarned = q.Points
		res.Feedback = "Correct!"
		return res
	}

	strictness := cfg.StrictnessFor(q)
	diff := math.Abs(student - correct)
	tolerance := resolveTolerance(q, cfg, correct, strictness)

	if diff <= tolerance {
		res.PointsEarned = q.Points
		res.Feedback = "Correct!"
		return res
	}

	if cfg.PartialCreditFor(q) {
		scale := tolerance
		if scale == 0 {
			// A zero-tolerance question still grades on the base scale
			// when partial credit is on; strictness discounts through
			// the leniency factor instead.
			scale = partialScale(cfg, correct)
		}
		if scale > 0 {
			normErr := diff / scale
			if normErr < maxErrorRatio {
				leniency := 1 - strictness/2
				credit := q.Points * (maxErrorRatio - normErr) / (maxErrorRatio - 1) * leniency
				if maxCredit := q.Points * partialCreditCap; credit > maxCredit {
					credit = maxCredit
				}
				if credit > 0 {
					res.PointsEarned = credit
					res.Feedback = fmt.Sprintf("Close! The exact answer is %g", correct)
					return res
				}
			}
		}
	}

	res.Feedback = fmt.Sprintf("Incorrect. The correct answer is: %g", correct)
	return res
}

// resolveTolerance returns the absolute tolerance window for a question:
// the per-question override when present, the strictness-derived default
// otherwise. Relative when the correct value is non-zero.
func resolveTolerance(q *models.Question, cfg models.GradingConfig, correct, strictness float64) float64 {
	if q.Tolerance != nil {
		if correct != 0 {
			return math.Abs(correct) * *q.Tolerance
		}
		return *q.Tolerance
	}
	return derivedTolerance(cfg, correct, strictness)
}

func derivedTolerance(cfg models.GradingConfig, correct, strictness float64) float64 {
	base := cfg.BaseTolerance
	if base <= 0 {
		base = models.DefaultBaseTolerance
	}
	tol := base * (1 - strictness)
	if correct != 0 {
		return math.Abs(correct) * tol
	}
	return tol
}

func partialScale(cfg models.GradingConfig, correct float64) float64 {
	base := cfg.BaseTolerance
	if base <= 0 {
		base = models.DefaultBaseTolerance
	}
	if correct != 0 {
		return math.Abs(correct) * base
	}
	return base
}

// ===== SHORT ANSWER =====

func (e *Evaluator) evaluateShortAnswer(ctx context.Context, q *models.Question, response string, cfg models.GradingConfig) models.QuestionResult {
	res := models.QuestionResult{StudentAnswer: response, Confidence: 1.0}

	normResp := models.NormalizeResponse(response)
	references := append([]string{q.CorrectAnswer}, q.AcceptedAnswers...)

	best := 0.0
	for _, ref := range references {
		normRef := models.NormalizeResponse(ref)
		if normRef == normResp {
			res.PointsEarned = q.Points
			res.Feedback = "Correct!"
			return res
		}
		if sim := similarity(normRef, normResp); sim > best {
			best = sim
		}
	}

	score := best
	aiGraded := false
	if cfg.AIGradingEnabled && e.semantic != nil {
		if opinion := e.secondOpinion(ctx, q, response, cfg); opinion != nil {
			score = opinion.ScoreFraction
			res.Feedback = opinion.Feedback
			res.Suggestions = opinion.Suggestions
			res.Strengths = opinion.Strengths
			res.Weaknesses = opinion.Weaknesses
			res.Confidence = opinion.Confidence
			aiGraded = true
		}
	}

	strictness := cfg.StrictnessFor(q)
	threshold := 0.75 + 0.2*strictness

	switch {
	case score >= threshold:
		res.PointsEarned = q.Points
		if !aiGraded {
			res.Feedback = "Correct!"
		}
	case cfg.PartialCreditFor(q) && score >= shortAnswerPartialFloor:
		res.PointsEarned = q.Points * score
		if !aiGraded {
			if score >= 0.7 {
				res.Feedback = "Mostly correct, minor differences from expected answer"
			} else {
				res.Feedback = "Partially correct, but missing key elements"
			}
		}
	default:
		if !aiGraded {
			res.Feedback = fmt.Sprintf("Incorrect. Expected: %s", q.CorrectAnswer)
		}
	}
	return res
}

// secondOpinion asks the semantic grading service for an AI score. It
// returns nil when the service is unavailable, errored, or not confident
// enough to override the lexical score.
func (e *Evaluator) secondOpinion(ctx context.Context, q *models.Question, response string, cfg models.GradingConfig) *ai.GradeResult {
	reference := q.CorrectAnswer
	if q.Rubric != "" {
		reference = reference + "\n" + q.Rubric
	}

	result, err := e.semantic.Grade(ctx, ai.GradeRequest{
		QuestionText: q.Text,
		QuestionType: string(q.Type),
		Reference:    reference,
		Response:     response,
		Points:       q.Points,
		Strictness:   cfg.StrictnessFor(q),
	})
	if err != nil {
		e.logger.Warn("AI second opinion failed, using lexical score",
			"question_id", q.ID, "error", err)
		return nil
	}
	if result.Unavailable || result.Confidence < aiConfidenceFloor {
		return nil
	}
	return result
}

// ===== ESSAY =====

func (e *Evaluator) evaluateEssay(ctx context.Context, q *models.Question, response string, cfg models.GradingConfig) models.QuestionResult {
	res := models.QuestionResult{StudentAnswer: response}

	if !cfg.AIGradingEnabled || e.semantic == nil {
		res.Feedback = "Essay submitted. Manual review required: AI grading is disabled"
		res.Marker = models.MarkerManualReview
		return res
	}

	result, err := e.semantic.Grade(ctx, ai.GradeRequest{
		QuestionText: q.Text,
		QuestionType: string(q.Type),
		Reference:    q.Rubric,
		Response:     response,
		Points:       q.Points,
		Strictness:   cfg.StrictnessFor(q),
	})
	if err != nil {
		e.logger.Warn("Essay grading failed, flagging for manual review",
			"question_id", q.ID, "error", err)
		result = ai.Unavailable()
	}

	// Never guess an essay grade: an unreachable service means zero points
	// and an explicit manual-review flag, not a silent estimate.
	if result.Unavailable {
		res.Feedback = "Essay submitted. Manual review required: grading service unavailable"
		res.Marker = models.MarkerManualReview
		return res
	}

	res.PointsEarned = q.Points * clampFraction(result.ScoreFraction)
	res.Feedback = result.Feedback
	res.Suggestions = result.Suggestions
	res.Strengths = result.Strengths
	res.Weaknesses = result.Weaknesses
	res.Confidence = result.Confidence
	if res.Feedback == "" {
		res.Feedback = "Essay graded by semantic evaluation"
	}
	return res
}

// ===== CODE =====

func (e *Evaluator) evaluateCode(_ context.Context, q *models.Question, response string, _ models.GradingConfig) models.QuestionResult {
	res := models.QuestionResult{StudentAnswer: response, Confidence: 1.0}

	code := strings.TrimSpace(response)
	if len(code) < minCodeLength {
		res.Feedback = "Code submission too short"
		return res
	}

	// Syntax validity only; this is the placeholder extension point for
	// future test-case execution.
	if diag := checkDelimiters(code); diag != "" {
		res.Feedback = fmt.Sprintf("Syntax error: %s", diag)
		return res
	}

	res.PointsEarned = q.Points
	res.Feedback = "Code syntax valid. Full evaluation requires execution"
	return res
}

// checkDelimiters verifies brackets, parentheses and braces are balanced
// outside string literals. Returns a diagnostic, or "" when valid.
func checkDelimiters(code string) string {
	var stack []rune
	var inString rune // active quote character, 0 when outside a literal
	escaped := false

	for _, r := range code {
		if inString != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == inString:
				inString = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			inString = r
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 {
				return fmt.Sprintf("unexpected %q", r)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !delimiterMatches(open, r) {
				return fmt.Sprintf("mismatched %q and %q", open, r)
			}
		}
	}

	if inString != 0 {
		return "unterminated string literal"
	}
	if len(stack) > 0 {
		return fmt.Sprintf("unclosed %q", stack[len(stack)-1])
	}
	return ""
}

func delimiterMatches(open, close rune) bool {
	switch open {
	case '(':
		return close == ')'
	case '[':
		return close == ']'
	case '{':
		return close == '}'
	}
	return false
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

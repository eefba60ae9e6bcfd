package models

import "time"

// ResultMarker tags a QuestionResult with the non-standard condition that
// produced it, if any.
type ResultMarker string

const (
	MarkerNone         ResultMarker = ""
	MarkerUnanswered   ResultMarker = "unanswered"
	MarkerNoResponse   ResultMarker = "no_response"
	MarkerManualReview ResultMarker = "manual_review"
	MarkerError        ResultMarker = "evaluation_error"
)

// QuestionResult is the graded outcome for a single answer.
//
// Invariants: 0 <= PointsEarned <= PointsPossible; Correct is true iff
// PointsEarned == PointsPossible; Feedback is never empty.
type QuestionResult struct {
	QuestionID     string       `json:"question_id"`
	QuestionType   QuestionType `json:"question_type"`
	StudentAnswer  string       `json:"student_answer"`
	PointsEarned   float64      `json:"points_earned"`
	PointsPossible float64      `json:"points_possible"`
	Correct        bool         `json:"correct"`
	Feedback       string       `json:"feedback"`
	Suggestions    []string     `json:"suggestions,omitempty"`
	Strengths      []string     `json:"strengths,omitempty"`
	Weaknesses     []string     `json:"weaknesses,omitempty"`

	// Confidence is only meaningful for AI-assisted types; locally graded
	// types report 1.0, unanswered/failed evaluations 0.0.
	Confidence float64      `json:"confidence"`
	Marker     ResultMarker `json:"marker,omitempty"`
}

// Fraction is the share of available points earned, in [0,1].
func (r *QuestionResult) Fraction() float64 {
	if r.PointsPossible <= 0 {
		return 0
	}
	return r.PointsEarned / r.PointsPossible
}

// TypePerformance aggregates results per question type within one submission.
type TypePerformance struct {
	Answered       int     `json:"answered"`
	Correct        int     `json:"correct"`
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
}

// SubmissionResult is the graded outcome for a whole submission. Every field
// is derived from QuestionResults; nothing here is set independently.
type SubmissionResult struct {
	ExamID      string    `json:"exam_id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	SubmittedAt time.Time `json:"submitted_at"`
	GradedAt    time.Time `json:"graded_at"`

	QuestionResults []QuestionResult `json:"question_results"`

	TotalPointsEarned   float64 `json:"total_points_earned"`
	TotalPointsPossible float64 `json:"total_points_possible"`
	Percentage          float64 `json:"percentage"`
	LetterGrade         string  `json:"letter_grade"`
	OverallFeedback     string  `json:"overall_feedback"`

	// Degraded is set when at least one evaluator failed and its question
	// was recorded as zero credit instead of aborting the submission.
	Degraded bool `json:"degraded"`

	TypeBreakdown map[QuestionType]TypePerformance `json:"type_breakdown,omitempty"`
}

// GetQuestionResult returns the result for a question id, or nil.
func (r *SubmissionResult) GetQuestionResult(questionID string) *QuestionResult {
	for i := range r.QuestionResults {
		if r.QuestionResults[i].QuestionID == questionID {
			return &r.QuestionResults[i]
		}
	}
	return nil
}

// Letter grade bands are a fixed policy for this engine: A>=90, B>=80,
// C>=70, D>=60, F below.
func LetterForPercentage(pct float64) string {
	switch {
	case pct >= 90:
		return "A"
	case pct >= 80:
		return "B"
	case pct >= 70:
		return "C"
	case pct >= 60:
		return "D"
	default:
		return "F"
	}
}

// LetterGrades lists the bands in display order.
var LetterGrades = []string{"A", "B", "C", "D", "F"}

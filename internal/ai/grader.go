package ai

import "context"

// GradeRequest carries everything the external grading service needs for one
// answer: the question text, the grading reference (rubric for essays,
// correct-answer text otherwise), and the student's response.
type GradeRequest struct {
	QuestionText string  `json:"question_text"`
	QuestionType string  `json:"question_type"`
	Reference    string  `json:"reference"`
	Response     string  `json:"response"`
	Points       float64 `json:"points"`
	Strictness   float64 `json:"strictness"`
}

// GradeResult is the adapter's outcome for one request. Unavailable is a
// first-class result, not an error: it is what callers get after a timeout
// or exhausted retries and must be handled like any other grade.
type GradeResult struct {
	ScoreFraction float64  `json:"score_fraction"`
	Feedback      string   `json:"feedback"`
	Strengths     []string `json:"strengths,omitempty"`
	Weaknesses    []string `json:"weaknesses,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
	Confidence    float64  `json:"confidence"`
	Unavailable   bool     `json:"unavailable,omitempty"`
}

// Unavailable is the sentinel returned when the service cannot be reached.
func Unavailable() *GradeResult {
	return &GradeResult{Unavailable: true}
}

// SummaryRequest asks the service for holistic feedback over a whole
// submission.
type SummaryRequest struct {
	ExamTitle    string          `json:"exam_title"`
	TotalEarned  float64         `json:"total_earned"`
	TotalMax     float64         `json:"total_max"`
	QuestionData []QuestionBrief `json:"question_data"`
}

// QuestionBrief is the per-question slice of a SummaryRequest.
type QuestionBrief struct {
	QuestionID string  `json:"question_id"`
	Correct    bool    `json:"correct"`
	Earned     float64 `json:"earned"`
	Possible   float64 `json:"possible"`
}

// SemanticGrader is the uniform contract evaluators grade essays and
// short answers through. Implementations are stateless across calls and
// safe for concurrent use.
type SemanticGrader interface {
	// Grade scores one answer. A transport-level outage yields the
	// Unavailable sentinel with a nil error; only non-transient protocol
	// failures (malformed response, authentication) return an error.
	Grade(ctx context.Context, req GradeRequest) (*GradeResult, error)

	// Summarize produces holistic feedback for a graded submission.
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

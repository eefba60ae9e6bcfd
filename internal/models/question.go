package models

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Numerical      QuestionType = "numerical"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	Code           QuestionType = "code"
)

// AllQuestionTypes is the closed set of supported types. Adding a type means
// adding an evaluator for it; there is no runtime extension.
var AllQuestionTypes = []QuestionType{
	MultipleChoice,
	TrueFalse,
	Numerical,
	ShortAnswer,
	Essay,
	Code,
}

// GradingOverrides are optional per-question knobs that take precedence over
// the exam-level GradingConfig for that question only.
type GradingOverrides struct {
	Strictness          *float64 `json:"strictness,omitempty" validate:"omitempty,min=0,max=1"`
	EnablePartialCredit *bool    `json:"enable_partial_credit,omitempty"`
}

// Question describes one exam question. Questions are authored elsewhere and
// are immutable for the duration of a grading call.
type Question struct {
	ID   string       `json:"id" validate:"required"`
	Text string       `json:"text" validate:"required"`
	Type QuestionType `json:"type" validate:"required,question_type"`

	// CorrectAnswer is the reference answer: an option label for
	// multiple choice, true/false for boolean questions, a textual number
	// for numerical questions, the expected phrase for short answers.
	CorrectAnswer string `json:"correct_answer"`

	// AcceptedAnswers lists additional answers treated as correct for
	// short-answer questions.
	AcceptedAnswers []string `json:"accepted_answers,omitempty"`

	// Tolerance overrides the strictness-derived tolerance for numerical
	// questions. Interpreted relative to the correct value when that value
	// is non-zero, absolute otherwise.
	Tolerance *float64 `json:"tolerance,omitempty" validate:"omitempty,min=0"`

	// Rubric holds the grading criteria handed to the semantic grading
	// service for essay (and optionally short-answer) questions.
	Rubric string `json:"rubric,omitempty"`

	Points    float64           `json:"points" validate:"required,gt=0"`
	Topics    []string          `json:"topics,omitempty"`
	Overrides *GradingOverrides `json:"overrides,omitempty"`
}

// GradingConfig is the per-exam grading policy. It is passed explicitly
// through every call; evaluators read no ambient configuration.
type GradingConfig struct {
	// Strictness scales partial-credit leniency: 0.0 is most lenient,
	// 1.0 is strictest.
	Strictness          float64 `json:"strictness" validate:"min=0,max=1"`
	EnablePartialCredit bool    `json:"enable_partial_credit"`
	AIGradingEnabled    bool    `json:"ai_grading_enabled"`

	// BaseTolerance seeds the derived numerical tolerance when a question
	// carries no tolerance of its own.
	BaseTolerance float64 `json:"base_tolerance,omitempty" validate:"omitempty,min=0"`
}

const DefaultBaseTolerance = 0.05

func DefaultGradingConfig() GradingConfig {
	return GradingConfig{
		Strictness:          0.7,
		EnablePartialCredit: true,
		AIGradingEnabled:    true,
		BaseTolerance:       DefaultBaseTolerance,
	}
}

// StrictnessFor resolves the effective strictness for a question, honoring
// its per-question override.
func (c GradingConfig) StrictnessFor(q *Question) float64 {
	if q.Overrides != nil && q.Overrides.Strictness != nil {
		return *q.Overrides.Strictness
	}
	return c.Strictness
}

// PartialCreditFor resolves the effective partial-credit policy for a question.
func (c GradingConfig) PartialCreditFor(q *Question) bool {
	if q.Overrides != nil && q.Overrides.EnablePartialCredit != nil {
		return *q.Overrides.EnablePartialCredit
	}
	return c.EnablePartialCredit
}

// Exam is the already-validated question set a grading call runs against.
// Ownership stays with the authoring/storage collaborator.
type Exam struct {
	ID           string     `json:"id" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	Subject      string     `json:"subject,omitempty"`
	PassingScore float64    `json:"passing_score" validate:"min=0,max=100"`
	Questions    []Question `json:"questions" validate:"required,min=1,dive"`
}

// TotalPoints sums the point values of all questions.
func (e *Exam) TotalPoints() float64 {
	var total float64
	for i := range e.Questions {
		total += e.Questions[i].Points
	}
	return total
}

// GetQuestion returns the question with the given id, or nil.
func (e *Exam) GetQuestion(id string) *Question {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i]
		}
	}
	return nil
}

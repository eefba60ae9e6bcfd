package models

import "time"

// Answer is a student's raw response to one question. Numeric answers arrive
// as text and are parsed at evaluation time.
type Answer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Response   string `json:"response"`
}

// Submission is one student's set of answers for an exam. A partial
// submission is valid input; missing answers are scored as zero with an
// "unanswered" marker. Duplicate answers for one question are invalid.
type Submission struct {
	ExamID      string    `json:"exam_id" validate:"required"`
	StudentID   string    `json:"student_id" validate:"required"`
	StudentName string    `json:"student_name"`
	Answers     []Answer  `json:"answers" validate:"dive"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// GetAnswer returns the answer for a question id, or nil when the question
// was left unanswered.
func (s *Submission) GetAnswer(questionID string) *Answer {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}

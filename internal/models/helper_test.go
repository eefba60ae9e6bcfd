package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeResponse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Paris", "paris"},
		{"  Paris  ", "paris"},
		{"The   Eiffel\tTower", "the eiffel tower"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeResponse(tt.in))
	}
}

func TestParseBoolResponse(t *testing.T) {
	for _, s := range []string{"true", "T", "Yes", "y", "1", "CORRECT"} {
		v, ok := ParseBoolResponse(s)
		assert.True(t, ok, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "F", "No", "n", "0", "incorrect"} {
		v, ok := ParseBoolResponse(s)
		assert.True(t, ok, s)
		assert.False(t, v, s)
	}
	for _, s := range []string{"maybe", "", "2", "yess"} {
		_, ok := ParseBoolResponse(s)
		assert.False(t, ok, s)
	}
}

func TestLetterForPercentage(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"},
		{90, "A"},
		{89.999, "B"},
		{80, "B"},
		{70, "C"},
		{60, "D"},
		{59.999, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LetterForPercentage(tt.pct))
	}
}

func TestGradingConfigOverrides(t *testing.T) {
	cfg := DefaultGradingConfig()

	strict := 0.2
	noPartial := false
	q := &Question{
		ID: "q1", Type: ShortAnswer, CorrectAnswer: "x", Points: 1,
		Overrides: &GradingOverrides{Strictness: &strict, EnablePartialCredit: &noPartial},
	}
	plain := &Question{ID: "q2", Type: ShortAnswer, CorrectAnswer: "y", Points: 1}

	assert.Equal(t, 0.2, cfg.StrictnessFor(q))
	assert.False(t, cfg.PartialCreditFor(q))
	assert.Equal(t, cfg.Strictness, cfg.StrictnessFor(plain))
	assert.True(t, cfg.PartialCreditFor(plain))
}

func TestExamHelpers(t *testing.T) {
	exam := &Exam{
		ID: "e1",
		Questions: []Question{
			{ID: "q1", Type: MultipleChoice, CorrectAnswer: "a", Points: 2},
			{ID: "q2", Type: Essay, Points: 8},
		},
	}

	assert.Equal(t, 10.0, exam.TotalPoints())
	assert.NotNil(t, exam.GetQuestion("q2"))
	assert.Nil(t, exam.GetQuestion("missing"))
}

func TestSubmissionGetAnswer(t *testing.T) {
	sub := &Submission{
		Answers: []Answer{{QuestionID: "q1", Response: "a"}},
	}
	assert.NotNil(t, sub.GetAnswer("q1"))
	assert.Nil(t, sub.GetAnswer("q2"))
}

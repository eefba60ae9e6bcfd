package ai

import (
	"fmt"
	"strings"
)

const gradingSystemPrompt = "You are an expert exam grader. Provide fair, constructive feedback."

const summarySystemPrompt = "You are an encouraging educator providing constructive feedback."

func strictnessLabel(strictness float64) string {
	switch {
	case strictness > 0.8:
		return "very strict"
	case strictness > 0.6:
		return "strict"
	case strictness > 0.4:
		return "moderate"
	default:
		return "lenient"
	}
}

func buildGradingPrompt(req GradeRequest) string {
	var sb strings.Builder
	sb.WriteString("Grade the following student answer.\n\n")
	sb.WriteString("QUESTION:\n" + req.QuestionText + "\n\n")
	sb.WriteString("QUESTION TYPE: " + req.QuestionType + "\n")
	sb.WriteString(fmt.Sprintf("POINTS POSSIBLE: %g\n\n", req.Points))

	if req.Reference != "" {
		sb.WriteString("GRADING REFERENCE (rubric or correct answer):\n" + req.Reference + "\n\n")
	}

	sb.WriteString("STUDENT ANSWER:\n" + req.Response + "\n\n")
	sb.WriteString(fmt.Sprintf("GRADING STRICTNESS: %s (%.1f/1.0)\n\n",
		strictnessLabel(req.Strictness), req.Strictness))

	sb.WriteString("Respond ONLY with a JSON object with these exact keys:\n")
	sb.WriteString(`{"score_fraction": <number 0 to 1>, "feedback": "<constructive feedback>", "strengths": ["<what the student did well>"], "weaknesses": ["<what needs improvement>"], "suggestions": ["<specific suggestions>"], "confidence": <number 0 to 1>}`)
	sb.WriteString("\n\nGuidelines:\n")
	sb.WriteString("- Check for semantic equivalence, not exact wording.\n")
	sb.WriteString("- Award partial credit proportional to the strictness level.\n")
	sb.WriteString("- Be constructive and specific in feedback.\n")

	return sb.String()
}

func buildSummaryPrompt(req SummaryRequest) string {
	var sb strings.Builder
	pct := 0.0
	if req.TotalMax > 0 {
		pct = req.TotalEarned / req.TotalMax * 100
	}
	sb.WriteString("Generate encouraging and constructive overall feedback for a student who completed an exam.\n\n")
	sb.WriteString("EXAM: " + req.ExamTitle + "\n")
	sb.WriteString(fmt.Sprintf("SCORE: %g/%g (%.1f%%)\n\n", req.TotalEarned, req.TotalMax, pct))

	sb.WriteString("QUESTION-BY-QUESTION RESULTS:\n")
	for _, q := range req.QuestionData {
		mark := "incorrect"
		if q.Correct {
			mark = "correct"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s (%g/%g)\n", q.QuestionID, mark, q.Earned, q.Possible))
	}

	sb.WriteString("\nProvide a performance summary, key strengths, main areas for improvement, ")
	sb.WriteString("and specific study recommendations. Keep it to two short paragraphs.\n")

	return sb.String()
}

package models

import "time"

// MistakeCluster is one distinct incorrect normalized response and how many
// submissions gave it.
type MistakeCluster struct {
	Response string `json:"response"`
	Count    int    `json:"count"`
}

// QuestionStat is the per-question slice of an AnalyticsReport.
type QuestionStat struct {
	QuestionID   string       `json:"question_id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Respondents  int          `json:"respondents"`
	CorrectCount int          `json:"correct_count"`

	// Difficulty is the mean fraction of available points earned across
	// submissions that answered the question, ascending = harder. Nil when
	// nobody answered; "unanswered by all" is not the same as "everyone
	// failed".
	Difficulty     *float64         `json:"difficulty"`
	CommonMistakes []MistakeCluster `json:"common_mistakes,omitempty"`
}

// TopicPerformance aggregates earned/possible points for one topic tag.
type TopicPerformance struct {
	Accuracy     float64 `json:"accuracy"`      // percent of answered questions correct
	AverageScore float64 `json:"average_score"` // percent of available points earned
	Answered     int     `json:"answered"`
}

// LeaderboardEntry is one ranked submission.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Percentage  float64   `json:"percentage"`
	LetterGrade string    `json:"letter_grade"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// AnalyticsReport is the class-level reduction over all graded submissions
// of one exam. It is a pure function of its input set: the same results
// produce the same report regardless of input order.
type AnalyticsReport struct {
	ExamID          string `json:"exam_id"`
	SubmissionCount int    `json:"submission_count"`

	// Score statistics over percentage scores. StdDev is the population
	// standard deviation; Median uses linear interpolation for even counts.
	MeanScore   float64 `json:"mean_score"`
	MedianScore float64 `json:"median_score"`
	StdDev      float64 `json:"std_dev"`
	MinScore    float64 `json:"min_score"`
	MaxScore    float64 `json:"max_score"`

	PassingCount int     `json:"passing_count"`
	PassingRate  float64 `json:"passing_rate"` // percent

	GradeDistribution map[string]int `json:"grade_distribution"`

	// QuestionStats is ordered hardest first (nil difficulties last).
	QuestionStats []QuestionStat `json:"question_stats"`

	TopicStats map[string]TopicPerformance `json:"topic_stats,omitempty"`

	Leaderboard []LeaderboardEntry `json:"leaderboard"`

	GeneratedAt time.Time `json:"generated_at"`
}

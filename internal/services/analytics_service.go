package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/classgrade/grading-engine/internal/events"
	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/utils"
)

const (
	// defaultMistakeClusters is how many distinct wrong answers a question
	// stat reports.
	defaultMistakeClusters = 3

	// defaultLeaderboardSize caps the ranked entries in a report.
	defaultLeaderboardSize = 10
)

// AnalyticsService reduces a batch of graded submissions into a class-level
// report.
type AnalyticsService interface {
	// ComputeAnalytics builds the report for one exam. An empty batch is an
	// EmptyBatchError, never a zero-valued report. The report is a pure
	// function of the result set: input order never changes the output.
	ComputeAnalytics(ctx context.Context, exam *models.Exam, results []*models.SubmissionResult) (*models.AnalyticsReport, error)
}

// AnalyticsOptions tunes report sizes. Zero values use the defaults.
type AnalyticsOptions struct {
	LeaderboardSize int
	MistakeClusters int
}

type analyticsService struct {
	opts      AnalyticsOptions
	publisher events.EventPublisher
	logger    utils.Logger
}

// NewAnalyticsService builds the report generator. publisher may be nil.
func NewAnalyticsService(opts AnalyticsOptions, publisher events.EventPublisher, logger utils.Logger) AnalyticsService {
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = defaultLeaderboardSize
	}
	if opts.MistakeClusters <= 0 {
		opts.MistakeClusters = defaultMistakeClusters
	}
	return &analyticsService{opts: opts, publisher: publisher, logger: logger}
}

func (s *analyticsService) ComputeAnalytics(ctx context.Context, exam *models.Exam, results []*models.SubmissionResult) (*models.AnalyticsReport, error) {
	if len(results) == 0 {
		return nil, &EmptyBatchError{ExamID: exam.ID}
	}

	report := &models.AnalyticsReport{
		ExamID:            exam.ID,
		SubmissionCount:   len(results),
		GradeDistribution: make(map[string]int),
		GeneratedAt:       time.Now().UTC(),
	}

	scores := make([]float64, 0, len(results))
	for _, r := range results {
		scores = append(scores, r.Percentage)
		report.GradeDistribution[r.LetterGrade]++
		if r.Percentage >= exam.PassingScore {
			report.PassingCount++
		}
	}
	for _, grade := range models.LetterGrades {
		if _, ok := report.GradeDistribution[grade]; !ok {
			report.GradeDistribution[grade] = 0
		}
	}

	report.MeanScore = mean(scores)
	report.MedianScore = median(scores)
	report.StdDev = stddev(scores, report.MeanScore)
	report.MinScore, report.MaxScore = minMax(scores)
	report.PassingRate = float64(report.PassingCount) / float64(len(results)) * 100

	report.QuestionStats = s.questionStats(exam, results)
	report.TopicStats = topicStats(exam, results)
	report.Leaderboard = leaderboard(results, s.opts.LeaderboardSize)

	s.publishGenerated(ctx, report)
	return report, nil
}

// questionStats aggregates per-question difficulty and mistake clusters,
// ordered hardest first.
func (s *analyticsService) questionStats(exam *models.Exam, results []*models.SubmissionResult) []models.QuestionStat {
	stats := make([]models.QuestionStat, 0, len(exam.Questions))

	for i := range exam.Questions {
		q := &exam.Questions[i]
		stat := models.QuestionStat{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			QuestionType: q.Type,
		}

		var fractionSum float64
		mistakes := make(map[string]int)

		for _, r := range results {
			qr := r.GetQuestionResult(q.ID)
			if qr == nil || qr.Marker == models.MarkerUnanswered {
				continue
			}
			stat.Respondents++
			fractionSum += qr.Fraction()
			if qr.Correct {
				stat.CorrectCount++
			} else if norm := models.NormalizeResponse(qr.StudentAnswer); norm != "" {
				mistakes[norm]++
			}
		}

		if stat.Respondents > 0 {
			d := fractionSum / float64(stat.Respondents)
			stat.Difficulty = &d
		}
		stat.CommonMistakes = clusterMistakes(mistakes, s.opts.MistakeClusters)
		stats = append(stats, stat)
	}

	// Hardest first; questions nobody answered sort last, then by id for a
	// deterministic order.
	sort.SliceStable(stats, func(i, j int) bool {
		di, dj := stats[i].Difficulty, stats[j].Difficulty
		switch {
		case di == nil && dj == nil:
			return stats[i].QuestionID < stats[j].QuestionID
		case di == nil:
			return false
		case dj == nil:
			return true
		case *di != *dj:
			return *di < *dj
		default:
			return stats[i].QuestionID < stats[j].QuestionID
		}
	})
	return stats
}

// clusterMistakes picks the top n wrong answers by count, ties broken
// lexicographically so the report is order-independent.
func clusterMistakes(mistakes map[string]int, n int) []models.MistakeCluster {
	if len(mistakes) == 0 {
		return nil
	}
	clusters := make([]models.MistakeCluster, 0, len(mistakes))
	for resp, count := range mistakes {
		clusters = append(clusters, models.MistakeCluster{Response: resp, Count: count})
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].Response < clusters[j].Response
	})
	if len(clusters) > n {
		clusters = clusters[:n]
	}
	return clusters
}

func topicStats(exam *models.Exam, results []*models.SubmissionResult) map[string]models.TopicPerformance {
	type acc struct {
		answered, correct int
		earned, possible  float64
	}
	byTopic := make(map[string]*acc)

	for i := range exam.Questions {
		q := &exam.Questions[i]
		if len(q.Topics) == 0 {
			continue
		}
		for _, r := range results {
			qr := r.GetQuestionResult(q.ID)
			if qr == nil || qr.Marker == models.MarkerUnanswered {
				continue
			}
			for _, topic := range q.Topics {
				a := byTopic[topic]
				if a == nil {
					a = &acc{}
					byTopic[topic] = a
				}
				a.answered++
				if qr.Correct {
					a.correct++
				}
				a.earned += qr.PointsEarned
				a.possible += qr.PointsPossible
			}
		}
	}

	if len(byTopic) == 0 {
		return nil
	}
	stats := make(map[string]models.TopicPerformance, len(byTopic))
	for topic, a := range byTopic {
		perf := models.TopicPerformance{Answered: a.answered}
		if a.answered > 0 {
			perf.Accuracy = float64(a.correct) / float64(a.answered) * 100
		}
		if a.possible > 0 {
			perf.AverageScore = a.earned / a.possible * 100
		}
		stats[topic] = perf
	}
	return stats
}

// leaderboard ranks by percentage descending; ties go to the earlier
// submission, then to the lower student id.
func leaderboard(results []*models.SubmissionResult, n int) []models.LeaderboardEntry {
	ranked := make([]*models.SubmissionResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Percentage != ranked[j].Percentage {
			return ranked[i].Percentage > ranked[j].Percentage
		}
		if !ranked[i].SubmittedAt.Equal(ranked[j].SubmittedAt) {
			return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
		}
		return ranked[i].StudentID < ranked[j].StudentID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	entries := make([]models.LeaderboardEntry, 0, len(ranked))
	for i, r := range ranked {
		entries = append(entries, models.LeaderboardEntry{
			Rank:        i + 1,
			StudentID:   r.StudentID,
			StudentName: r.StudentName,
			Percentage:  r.Percentage,
			LetterGrade: r.LetterGrade,
			SubmittedAt: r.SubmittedAt,
		})
	}
	return entries
}

func (s *analyticsService) publishGenerated(ctx context.Context, report *models.AnalyticsReport) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAnalyticsGenerated(ctx, report); err != nil {
		s.logger.Warn("Failed to publish analytics event",
			"exam_id", report.ExamID, "error", err)
	}
}

// ===== SCORE STATISTICS =====

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// median linearly interpolates between the two middle values for even
// counts.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// stddev is the population standard deviation.
func stddev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

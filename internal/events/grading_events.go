package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/classgrade/grading-engine/internal/models"
)

// EventType represents different types of grading events
type EventType string

const (
	// Grading events
	EventGradingCompleted EventType = "grading.completed"
	EventGradingDegraded  EventType = "grading.degraded"

	// Analytics events
	EventAnalyticsGenerated EventType = "analytics.generated"
)

// GradingEvent is the base event structure for all grading events
type GradingEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Grading event payloads

type GradingCompletedEvent struct {
	ExamID      string    `json:"exam_id"`
	StudentID   string    `json:"student_id"`
	GradedAt    time.Time `json:"graded_at"`
	Percentage  float64   `json:"percentage"`
	LetterGrade string    `json:"letter_grade"`
	Degraded    bool      `json:"degraded"`
}

type AnalyticsGeneratedEvent struct {
	ExamID          string    `json:"exam_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	SubmissionCount int       `json:"submission_count"`
	MeanScore       float64   `json:"mean_score"`
	PassingRate     float64   `json:"passing_rate"`
}

// Event factory functions

func NewGradingCompletedEvent(result *models.SubmissionResult) *GradingEvent {
	eventType := EventGradingCompleted
	if result.Degraded {
		eventType = EventGradingDegraded
	}
	return &GradingEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "grading-engine",
		Version:   "1.0",
		Data: GradingCompletedEvent{
			ExamID:      result.ExamID,
			StudentID:   result.StudentID,
			GradedAt:    result.GradedAt,
			Percentage:  result.Percentage,
			LetterGrade: result.LetterGrade,
			Degraded:    result.Degraded,
		},
	}
}

func NewAnalyticsGeneratedEvent(report *models.AnalyticsReport) *GradingEvent {
	return &GradingEvent{
		ID:        GenerateEventID(),
		Type:      EventAnalyticsGenerated,
		Timestamp: time.Now(),
		Source:    "grading-engine",
		Version:   "1.0",
		Data: AnalyticsGeneratedEvent{
			ExamID:          report.ExamID,
			GeneratedAt:     report.GeneratedAt,
			SubmissionCount: report.SubmissionCount,
			MeanScore:       report.MeanScore,
			PassingRate:     report.PassingRate,
		},
	}
}

// GenerateEventID returns a unique identifier for an event
func GenerateEventID() string {
	return uuid.NewString()
}

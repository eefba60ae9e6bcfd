package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/classgrade/grading-engine/internal/models"
)

// EventPublisher defines the interface for publishing grading events
type EventPublisher interface {
	PublishGradingCompleted(ctx context.Context, result *models.SubmissionResult) error
	PublishAnalyticsGenerated(ctx context.Context, report *models.AnalyticsReport) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisherConfig := kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}

	publisher, err := kafka.NewPublisher(publisherConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

// PublishGradingCompleted publishes a grading completion event to Kafka
func (p *KafkaEventPublisher) PublishGradingCompleted(ctx context.Context, result *models.SubmissionResult) error {
	return p.publish(NewGradingCompletedEvent(result))
}

// PublishAnalyticsGenerated publishes an analytics generation event to Kafka
func (p *KafkaEventPublisher) PublishAnalyticsGenerated(ctx context.Context, report *models.AnalyticsReport) error {
	return p.publish(NewAnalyticsGeneratedEvent(report))
}

func (p *KafkaEventPublisher) publish(event *GradingEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal grading event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format("2006-01-02T15:04:05Z07:00"))

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish grading event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish grading event: %w", err)
	}

	p.logger.Info("Published grading event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher is a mock implementation for testing. Safe for the
// concurrent publishes batch grading produces.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []GradingEvent
	Logger *slog.Logger
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]GradingEvent, 0),
		Logger: logger,
	}
}

// PublishGradingCompleted stores the event in memory (for testing)
func (m *MockEventPublisher) PublishGradingCompleted(ctx context.Context, result *models.SubmissionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, *NewGradingCompletedEvent(result))
	return nil
}

// PublishAnalyticsGenerated stores the event in memory (for testing)
func (m *MockEventPublisher) PublishAnalyticsGenerated(ctx context.Context, report *models.AnalyticsReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, *NewAnalyticsGeneratedEvent(report))
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns all published events (for testing)
func (m *MockEventPublisher) GetPublishedEvents() []GradingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GradingEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// ClearEvents clears all published events (for testing)
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = make([]GradingEvent, 0)
}

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/classgrade/grading-engine/internal/utils"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3

	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
)

// ClientConfig holds the transport settings for the grading service.
// Credentials are owned by the caller; the adapter just uses them.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to an OpenAI-compatible grading endpoint. It holds no mutable
// state between calls and is safe for concurrent use.
type Client struct {
	api        *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	logger     utils.Logger
}

// NewClient creates a semantic grading client.
func NewClient(cfg ClientConfig, logger utils.Logger) *Client {
	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		api:        openai.NewClientWithConfig(apiConfig),
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// wireResult mirrors the JSON contract of the grading service. ScoreFraction
// is a pointer so a missing field can be told apart from a zero score.
type wireResult struct {
	ScoreFraction *float64 `json:"score_fraction"`
	Feedback      string   `json:"feedback"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Suggestions   []string `json:"suggestions"`
	Confidence    float64  `json:"confidence"`
}

// Grade scores one answer against its reference, retrying transient failures
// with exponential backoff. Exhausted retries and timeouts produce the
// Unavailable sentinel; malformed responses and authentication failures are
// returned as errors without retry.
func (c *Client) Grade(ctx context.Context, req GradeRequest) (*GradeResult, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: gradingSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildGradingPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	}

	backoff := initialBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Unavailable(), nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(attemptCtx, chatReq)
		cancel()

		if err != nil {
			if !isTransient(err) {
				return nil, fmt.Errorf("semantic grading call: %w", err)
			}
			c.logger.Warn("Transient grading service failure",
				"attempt", attempt+1,
				"max_retries", c.maxRetries,
				"error", err)
			continue
		}

		if len(resp.Choices) == 0 {
			return nil, errors.New("semantic grading call: empty response")
		}
		return parseGradeResponse(resp.Choices[0].Message.Content)
	}

	c.logger.Warn("Semantic grading service unavailable after retries",
		"retries", c.maxRetries)
	return Unavailable(), nil
}

// Summarize asks the service for holistic submission feedback. Failures are
// returned as errors; the grader has a local fallback.
func (c *Client) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildSummaryPrompt(req)},
		},
		Temperature: 0.5,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("summary call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("summary call: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parseGradeResponse validates the wire contract. A response without
// score_fraction is a non-transient failure; out-of-range scores are clamped
// with confidence downgraded rather than trusted.
func parseGradeResponse(raw string) (*GradeResult, error) {
	var wire wireResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &wire); err != nil {
		return nil, fmt.Errorf("parse grading response: %w (raw: %s)", err, raw)
	}
	if wire.ScoreFraction == nil {
		return nil, errors.New("grading response missing score_fraction")
	}

	result := &GradeResult{
		ScoreFraction: *wire.ScoreFraction,
		Feedback:      wire.Feedback,
		Strengths:     wire.Strengths,
		Weaknesses:    wire.Weaknesses,
		Suggestions:   wire.Suggestions,
		Confidence:    clamp01(wire.Confidence),
	}

	if result.ScoreFraction < 0 || result.ScoreFraction > 1 {
		result.ScoreFraction = clamp01(result.ScoreFraction)
		result.Confidence = result.Confidence * 0.5
	}
	return result, nil
}

// isTransient reports whether an error may clear on retry: rate limits,
// server-side failures, timeouts and network errors.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// go-openai wraps connection failures in plain errors
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package ai

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/grading-engine/internal/cache"
	"github.com/classgrade/grading-engine/internal/utils"
)

// memoryCache is an in-process CacheService for tests
type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = data
	return nil
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := m.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	return nil
}

// countingGrader returns a fixed result and counts calls
type countingGrader struct {
	result *GradeResult
	calls  int
}

func (c *countingGrader) Grade(ctx context.Context, req GradeRequest) (*GradeResult, error) {
	c.calls++
	return c.result, nil
}

func (c *countingGrader) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	return "summary", nil
}

func TestCachedGrader(t *testing.T) {
	req := GradeRequest{
		QuestionText: "Explain osmosis",
		QuestionType: "short_answer",
		Reference:    "diffusion of water across a membrane",
		Response:     "water moves through a membrane",
		Points:       5,
		Strictness:   0.7,
	}

	t.Run("second identical request hits the cache", func(t *testing.T) {
		inner := &countingGrader{result: &GradeResult{ScoreFraction: 0.9, Feedback: "good", Confidence: 0.8}}
		grader := NewCachedGrader(inner, newMemoryCache(), utils.NewDevelopmentLogger())

		first, err := grader.Grade(context.Background(), req)
		require.NoError(t, err)
		second, err := grader.Grade(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, first.ScoreFraction, second.ScoreFraction)
		assert.Equal(t, first.Feedback, second.Feedback)
	})

	t.Run("different responses miss each other", func(t *testing.T) {
		inner := &countingGrader{result: &GradeResult{ScoreFraction: 0.5, Feedback: "ok", Confidence: 0.8}}
		grader := NewCachedGrader(inner, newMemoryCache(), utils.NewDevelopmentLogger())

		_, err := grader.Grade(context.Background(), req)
		require.NoError(t, err)

		other := req
		other.Response = "something else entirely"
		_, err = grader.Grade(context.Background(), other)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.calls)
	})

	t.Run("unavailable sentinel is never cached", func(t *testing.T) {
		inner := &countingGrader{result: Unavailable()}
		grader := NewCachedGrader(inner, newMemoryCache(), utils.NewDevelopmentLogger())

		for i := 0; i < 3; i++ {
			result, err := grader.Grade(context.Background(), req)
			require.NoError(t, err)
			assert.True(t, result.Unavailable)
		}
		assert.Equal(t, 3, inner.calls, "an outage must be re-probed every time")
	})
}

func TestBuildGradingPrompt(t *testing.T) {
	prompt := buildGradingPrompt(GradeRequest{
		QuestionText: "Explain osmosis",
		QuestionType: "essay",
		Reference:    "water diffusion rubric",
		Response:     "water moves",
		Points:       10,
		Strictness:   0.9,
	})

	assert.Contains(t, prompt, "Explain osmosis")
	assert.Contains(t, prompt, "water diffusion rubric")
	assert.Contains(t, prompt, "water moves")
	assert.Contains(t, prompt, "very strict")
	assert.Contains(t, prompt, "score_fraction")
	assert.Contains(t, prompt, "confidence")
}

func TestStrictnessLabel(t *testing.T) {
	tests := []struct {
		strictness float64
		want       string
	}{
		{1.0, "very strict"},
		{0.7, "strict"},
		{0.5, "moderate"},
		{0.2, "lenient"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, strictnessLabel(tt.strictness))
	}
}

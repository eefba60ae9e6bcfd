package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/grading-engine/internal/utils"
)

func chatResponse(content string) string {
	payload := map[string]interface{}{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func newFakeServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL + "/v1",
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	}, utils.NewDevelopmentLogger())
	return server, client
}

func gradeReq() GradeRequest {
	return GradeRequest{
		QuestionText: "Explain photosynthesis",
		QuestionType: "short_answer",
		Reference:    "Plants convert light into chemical energy",
		Response:     "Plants turn sunlight into sugar",
		Points:       5,
		Strictness:   0.7,
	}
}

func TestClient_Grade(t *testing.T) {
	t.Run("well-formed response", func(t *testing.T) {
		_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatResponse(`{
				"score_fraction": 0.8,
				"feedback": "Captures the core idea",
				"strengths": ["identifies energy conversion"],
				"weaknesses": ["no mention of chlorophyll"],
				"suggestions": ["name the pigment involved"],
				"confidence": 0.9
			}`))
		})

		result, err := client.Grade(context.Background(), gradeReq())
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.False(t, result.Unavailable)
		assert.Equal(t, 0.8, result.ScoreFraction)
		assert.Equal(t, "Captures the core idea", result.Feedback)
		assert.Equal(t, []string{"identifies energy conversion"}, result.Strengths)
		assert.Equal(t, 0.9, result.Confidence)
	})

	t.Run("out-of-range score is clamped and confidence halved", func(t *testing.T) {
		_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatResponse(`{"score_fraction": 1.4, "feedback": "ok", "confidence": 0.8}`))
		})

		result, err := client.Grade(context.Background(), gradeReq())
		require.NoError(t, err)

		assert.Equal(t, 1.0, result.ScoreFraction)
		assert.Equal(t, 0.4, result.Confidence)
	})

	t.Run("missing score_fraction is an error without retry", func(t *testing.T) {
		var calls atomic.Int32
		_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, chatResponse(`{"feedback": "no score here"}`))
		})

		result, err := client.Grade(context.Background(), gradeReq())
		assert.Nil(t, result)
		assert.ErrorContains(t, err, "score_fraction")
		assert.Equal(t, int32(1), calls.Load(), "protocol violations do not retry")
	})

	t.Run("server errors retry then report unavailable", func(t *testing.T) {
		var calls atomic.Int32
		_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": {"message": "upstream exploded", "type": "server_error"}}`)
		})

		result, err := client.Grade(context.Background(), gradeReq())
		require.NoError(t, err, "outage is the sentinel, not an error")
		require.NotNil(t, result)

		assert.True(t, result.Unavailable)
		assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
	})

	t.Run("recovery mid-retry succeeds", func(t *testing.T) {
		var calls atomic.Int32
		_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, `{"error": {"message": "warming up", "type": "server_error"}}`)
				return
			}
			fmt.Fprint(w, chatResponse(`{"score_fraction": 0.5, "feedback": "ok", "confidence": 0.7}`))
		})

		result, err := client.Grade(context.Background(), gradeReq())
		require.NoError(t, err)
		assert.False(t, result.Unavailable)
		assert.Equal(t, 0.5, result.ScoreFraction)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("authentication failure is a non-transient error", func(t *testing.T) {
		var calls atomic.Int32
		_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`)
		})

		result, err := client.Grade(context.Background(), gradeReq())
		assert.Nil(t, result)
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestClient_Summarize(t *testing.T) {
	_, client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse("  Great effort overall; review cell biology.  "))
	})

	summary, err := client.Summarize(context.Background(), SummaryRequest{
		ExamTitle:   "Biology Midterm",
		TotalEarned: 42,
		TotalMax:    50,
		QuestionData: []QuestionBrief{
			{QuestionID: "q1", Correct: true, Earned: 5, Possible: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Great effort overall; review cell biology.", summary)
}

func TestParseGradeResponse(t *testing.T) {
	t.Run("zero score is valid", func(t *testing.T) {
		result, err := parseGradeResponse(`{"score_fraction": 0, "feedback": "wrong", "confidence": 1}`)
		require.NoError(t, err)
		assert.Zero(t, result.ScoreFraction)
	})

	t.Run("negative score clamps to zero", func(t *testing.T) {
		result, err := parseGradeResponse(`{"score_fraction": -0.3, "feedback": "x", "confidence": 1}`)
		require.NoError(t, err)
		assert.Zero(t, result.ScoreFraction)
		assert.Equal(t, 0.5, result.Confidence)
	})

	t.Run("garbage is an error", func(t *testing.T) {
		_, err := parseGradeResponse("I would give this a 7/10")
		assert.Error(t, err)
	})
}

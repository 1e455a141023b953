package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasky/internal/core/task"
)

type capturedRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(Options{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/v1",
		Timeout: timeout,
	})
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  DefaultModel,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got capturedRequest
	var auth, path string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, `[{"title":"Call Alice"}]`)
	}, time.Second)

	out, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "Extract tasks from this input:\n\ncall alice"},
	})
	require.NoError(t, err)

	assert.Equal(t, `[{"title":"Call Alice"}]`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, RoleUser, got.Messages[1].Role)
	assert.Equal(t, "Extract tasks from this input:\n\ncall alice", got.Messages[1].Content)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
			},
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "server error without json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream unavailable"))
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
			},
			wantStatus: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, time.Second)

			_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
			require.Error(t, err)
			assert.ErrorIs(t, err, task.ErrGeneration)

			var genErr *task.GenerationError
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, tt.wantStatus, genErr.StatusCode)
		})
	}
}

func TestOpenAIClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	start := time.Now()
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.Error(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, task.ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var genErr *task.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, http.StatusGatewayTimeout, genErr.StatusCode)
	assert.True(t, genErr.Retryable())
}

func TestNewOpenAIClient_Defaults(t *testing.T) {
	c := NewOpenAIClient(Options{APIKey: "k"})
	assert.Equal(t, DefaultModel, c.model)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

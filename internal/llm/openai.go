package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/colonyops/tasky/internal/core/logging"
	"github.com/colonyops/tasky/internal/core/task"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	// Temperature is sent with every completion request.
	Temperature float32 = 0.3
)

var errEmptyCompletion = errors.New("completion returned no choices")

// Options configures an OpenAIClient.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string // empty uses the OpenAI default
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIClient implements Completer against the OpenAI chat completions API
// or any server compatible with it.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

var _ Completer = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client. Zero-valued options fall back to
// DefaultModel and DefaultTimeout.
func NewOpenAIClient(opts Options) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		log:     logging.Component("llm"),
	}
}

// Complete sends messages in order and returns the content of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: Temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		genErr := toGenerationError(err)
		c.log.Warn().Ctx(ctx).
			Err(err).
			Int("status", genErr.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("chat completion failed")
		return "", genErr
	}

	if len(resp.Choices) == 0 {
		return "", &task.GenerationError{Err: errEmptyCompletion}
	}

	c.log.Debug().Ctx(ctx).
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion")

	return resp.Choices[0].Message.Content, nil
}

func toGenerationError(err error) *task.GenerationError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &task.GenerationError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &task.GenerationError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &task.GenerationError{StatusCode: http.StatusGatewayTimeout, Err: fmt.Errorf("model call timed out: %w", err)}
	}

	return &task.GenerationError{Err: err}
}

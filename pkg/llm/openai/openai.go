// Package openai implements the OpenAI-compatible LLM invoker. It works
// against OpenAI itself as well as vLLM, LM Studio or Ollama through a custom
// base URL.
package openai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
)

// Client is an interfaces.LLM backed by an OpenAI-compatible chat endpoint.
type Client struct {
	client    openai.Client
	provider  string
	model     string
	maxTokens int
	timeout   time.Duration
	logger    logging.Logger
}

// Option configures the client.
type Option func(*Client)

// WithMaxTokens bounds the completion size. Non-positive means provider default.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithTimeout bounds each invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client. provider is the identifier reported in responses,
// e.g. "openai_compatible".
func New(provider, model, apiKey, baseURL string, options ...Option) *Client {
	requestOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(baseURL))
	}
	c := &Client{
		client:   openai.NewClient(requestOptions...),
		provider: provider,
		model:    model,
		timeout:  15 * time.Second,
		logger:   logging.New(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Name implements interfaces.LLM.
func (c *Client) Name() string { return c.provider }

// Invoke implements interfaces.LLM. Transport failures and timeouts are
// reported in the response's Err field; latency and identity metadata are
// populated either way.
func (c *Client) Invoke(ctx context.Context, prompt string) interfaces.LLMResponse {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start).Milliseconds()

	response := interfaces.LLMResponse{
		Provider:  c.provider,
		Model:     c.model,
		LatencyMS: latency,
	}
	if err != nil {
		c.logger.Warn(ctx, "LLM invocation failed", map[string]interface{}{
			"provider":   c.provider,
			"model":      c.model,
			"latency_ms": latency,
			"error":      err.Error(),
		})
		response.Err = err
		return response
	}

	if len(completion.Choices) > 0 {
		response.Content = completion.Choices[0].Message.Content
	}
	promptTokens := completion.Usage.PromptTokens
	completionTokens := completion.Usage.CompletionTokens
	response.PromptTokens = &promptTokens
	response.CompletionTokens = &completionTokens
	return response
}

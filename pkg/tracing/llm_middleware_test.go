package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/tracing"
)

type recordingLLM struct {
	response interfaces.LLMResponse

	lastPrompt string
}

func (r *recordingLLM) Invoke(_ context.Context, prompt string) interfaces.LLMResponse {
	r.lastPrompt = prompt
	return r.response
}

func (r *recordingLLM) Name() string { return "openai_compatible" }

func TestMiddlewarePassesThrough(t *testing.T) {
	inner := &recordingLLM{response: interfaces.LLMResponse{
		Content:   "- hola\n- mundo",
		Provider:  "openai_compatible",
		Model:     "llama-3-8b-instruct",
		LatencyMS: 7,
	}}
	middleware := tracing.NewLLMMiddleware(inner, tracing.WithMaxChars(100))

	response := middleware.Invoke(context.Background(), "un prompt")

	assert.Equal(t, inner.response, response)
	assert.Equal(t, "un prompt", inner.lastPrompt)
	assert.Equal(t, "openai_compatible", middleware.Name())
}

func TestMiddlewarePassesThroughError(t *testing.T) {
	inner := &recordingLLM{response: interfaces.LLMResponse{
		Provider: "openai_compatible",
		Model:    "llama-3-8b-instruct",
		Err:      errors.New("request timed out"),
	}}
	middleware := tracing.NewLLMMiddleware(inner)

	response := middleware.Invoke(context.Background(), "un prompt")

	assert.Error(t, response.Err)
	assert.Equal(t, "request timed out", response.Err.Error())
}

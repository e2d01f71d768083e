package interfaces

import "context"

// LLMResponse is the uniform result of one LLM invocation. Failures travel in
// Err so callers branch on the outcome instead of intercepting panics or
// unwrapping transport errors.
type LLMResponse struct {
	Content          string
	Provider         string
	Model            string
	LatencyMS        int64
	PromptTokens     *int64
	CompletionTokens *int64
	Err              error
}

// LLM is a language model invoker. Implementations must always populate
// Provider, Model and LatencyMS, even on error and on the stub path, so the
// trace contract stays uniform.
type LLM interface {
	// Invoke generates a completion for the prompt.
	Invoke(ctx context.Context, prompt string) LLMResponse

	// Name returns the provider identifier.
	Name() string
}

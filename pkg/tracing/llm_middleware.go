// Package tracing wraps LLM invocations in OpenTelemetry spans.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/observability"
)

const tracerName = "aurora-agent/llm"

// LLMMiddleware decorates an LLM invoker with span recording. It implements
// interfaces.LLM so it can wrap any provider the factory resolves.
type LLMMiddleware struct {
	llm      interfaces.LLM
	tracer   oteltrace.Tracer
	maxChars int
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*LLMMiddleware)

// WithMaxChars bounds the prompt and content excerpts attached to spans.
func WithMaxChars(maxChars int) MiddlewareOption {
	return func(m *LLMMiddleware) {
		m.maxChars = maxChars
	}
}

// NewLLMMiddleware wraps an LLM invoker with OpenTelemetry tracing.
func NewLLMMiddleware(llm interfaces.LLM, options ...MiddlewareOption) *LLMMiddleware {
	m := &LLMMiddleware{
		llm:      llm,
		tracer:   otel.Tracer(tracerName),
		maxChars: observability.DefaultTraceMaxChars,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Invoke calls the underlying LLM inside a span. Tracing failures never
// affect the invocation result.
func (m *LLMMiddleware) Invoke(ctx context.Context, prompt string) interfaces.LLMResponse {
	ctx, span := m.tracer.Start(ctx, "llm.invoke", oteltrace.WithAttributes(
		attribute.String("llm.provider", m.llm.Name()),
		attribute.String("llm.prompt", observability.TruncateText(prompt, m.maxChars)),
	))
	defer span.End()

	response := m.llm.Invoke(ctx, prompt)

	span.SetAttributes(
		attribute.String("llm.model", response.Model),
		attribute.Int64("llm.latency_ms", response.LatencyMS),
		attribute.String("llm.content", observability.TruncateText(response.Content, m.maxChars)),
	)
	if response.PromptTokens != nil {
		span.SetAttributes(attribute.Int64("llm.prompt_tokens", *response.PromptTokens))
	}
	if response.CompletionTokens != nil {
		span.SetAttributes(attribute.Int64("llm.completion_tokens", *response.CompletionTokens))
	}
	if response.Err != nil {
		span.RecordError(response.Err)
		span.SetStatus(codes.Error, response.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return response
}

// Name implements interfaces.LLM.
func (m *LLMMiddleware) Name() string {
	return m.llm.Name()
}

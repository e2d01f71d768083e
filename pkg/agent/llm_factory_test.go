package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreria-aurora/aurora-agent/pkg/config"
	"github.com/libreria-aurora/aurora-agent/pkg/llm/openai"
	"github.com/libreria-aurora/aurora-agent/pkg/llm/stub"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
	"github.com/libreria-aurora/aurora-agent/pkg/tracing"
)

func newFactory(cfg config.LLM) *LLMFactory {
	return NewLLMFactory(cfg, WithFactoryLogger(logging.NewNoOpLogger()))
}

func TestResolveStubProviders(t *testing.T) {
	for _, provider := range []string{"stub", "local_stub", "test", "STUB"} {
		t.Run(provider, func(t *testing.T) {
			factory := newFactory(config.LLM{Provider: provider, CostMode: config.CostModePaid})

			invoker, err := factory.Resolve("")
			require.NoError(t, err)

			response := invoker.Invoke(context.Background(), "hola")
			assert.Equal(t, stub.DefaultCannedResponse, response.Content)
			assert.Equal(t, "stub", response.Provider)
		})
	}
}

func TestResolveUnsupportedProvider(t *testing.T) {
	factory := newFactory(config.LLM{Provider: "anthropic", CostMode: config.CostModePaid})

	_, err := factory.Resolve("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImproperlyConfigured)
}

func TestResolveBYOKeyModeRequiresCallerKey(t *testing.T) {
	factory := newFactory(config.LLM{
		Provider: "openai_compatible",
		CostMode: config.CostModeBYOKey,
		APIKey:   "sk-server-key-ignored",
	})

	_, err := factory.Resolve("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImproperlyConfigured)
}

func TestResolveBYOKeyModeWithCallerKey(t *testing.T) {
	factory := newFactory(config.LLM{
		Provider: "openai_compatible",
		Model:    "llama-3-8b-instruct",
		CostMode: config.CostModeBYOKey,
	})

	invoker, err := factory.Resolve("sk-caller-key")
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, invoker)
	assert.Equal(t, "openai_compatible", invoker.Name())
}

func TestResolveKeylessFallsBackToStub(t *testing.T) {
	for _, costMode := range []string{config.CostModePaid, config.CostModeHybrid} {
		t.Run(costMode, func(t *testing.T) {
			factory := newFactory(config.LLM{Provider: "openai_compatible", CostMode: costMode})

			invoker, err := factory.Resolve("")
			require.NoError(t, err)

			response := invoker.Invoke(context.Background(), "hola")
			assert.Equal(t, KeylessStubResponse, response.Content)
		})
	}
}

func TestResolveServerKey(t *testing.T) {
	factory := newFactory(config.LLM{
		Provider: "openai_compatible",
		Model:    "llama-3-8b-instruct",
		APIKey:   "sk-server-key",
		CostMode: config.CostModePaid,
	})

	invoker, err := factory.Resolve("")
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, invoker)
}

func TestResolveIgnoresCallerKeyWhenBYONotAllowed(t *testing.T) {
	// Paid mode without a server key: the caller key alone must not select a
	// real provider unless BYO is explicitly allowed.
	factory := newFactory(config.LLM{
		Provider:    "openai_compatible",
		CostMode:    config.CostModePaid,
		AllowBYOKey: false,
	})

	invoker, err := factory.Resolve("sk-caller-key")
	require.NoError(t, err)

	response := invoker.Invoke(context.Background(), "hola")
	assert.Equal(t, KeylessStubResponse, response.Content)
}

func TestResolveAllowedCallerKey(t *testing.T) {
	factory := newFactory(config.LLM{
		Provider:    "openai_compatible",
		Model:       "llama-3-8b-instruct",
		CostMode:    config.CostModeHybrid,
		AllowBYOKey: true,
	})

	invoker, err := factory.Resolve("sk-caller-key")
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, invoker)
}

func TestResolveTracedInvokersWrap(t *testing.T) {
	factory := NewLLMFactory(
		config.LLM{Provider: "stub", CostMode: config.CostModePaid},
		WithFactoryLogger(logging.NewNoOpLogger()),
		WithTracedInvokers(200),
	)

	invoker, err := factory.Resolve("")
	require.NoError(t, err)
	assert.IsType(t, &tracing.LLMMiddleware{}, invoker)

	response := invoker.Invoke(context.Background(), "hola")
	assert.Equal(t, stub.DefaultCannedResponse, response.Content)
}

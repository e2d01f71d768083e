package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/libreria-aurora/aurora-agent/pkg/config"
	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/llm/openai"
	"github.com/libreria-aurora/aurora-agent/pkg/llm/stub"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
	"github.com/libreria-aurora/aurora-agent/pkg/tracing"
)

// ErrImproperlyConfigured marks configuration errors, as opposed to runtime
// LLM failures. The orchestrator tags them "unconfigured" in traces.
var ErrImproperlyConfigured = errors.New("improperly configured")

// KeylessStubResponse is the canned content used when no API key is
// configured outside byo_key mode.
const KeylessStubResponse = "LLM sin API key: respondiendo en modo stub."

// LLMFactory resolves provider, model and credentials under the cost-mode
// policy and returns a uniform invoker.
type LLMFactory struct {
	config        config.LLM
	logger        logging.Logger
	traced        bool
	traceMaxChars int
}

// FactoryOption configures the factory.
type FactoryOption func(*LLMFactory)

// WithFactoryLogger sets a custom logger.
func WithFactoryLogger(logger logging.Logger) FactoryOption {
	return func(f *LLMFactory) {
		f.logger = logger
	}
}

// WithTracedInvokers wraps every resolved invoker in the OpenTelemetry
// middleware, bounding span payloads to maxChars.
func WithTracedInvokers(maxChars int) FactoryOption {
	return func(f *LLMFactory) {
		f.traced = true
		f.traceMaxChars = maxChars
	}
}

// NewLLMFactory creates a factory over the given LLM configuration.
func NewLLMFactory(cfg config.LLM, options ...FactoryOption) *LLMFactory {
	f := &LLMFactory{config: cfg, logger: logging.New()}
	for _, option := range options {
		option(f)
	}
	return f
}

// Resolve returns the invoker for this request. byoAPIKey is the
// caller-supplied credential, empty when none was sent.
//
// Key selection follows the cost mode:
//   - byo_key: the caller key is required; absence is a configuration error.
//   - paid: the server key is used; a caller key counts only when BYO is
//     explicitly allowed.
//   - hybrid: prefers the server key, else the caller key when BYO is allowed.
//
// When no usable key remains outside byo_key mode, Resolve returns the stub
// rather than failing: the agent stays available with zero budget configured.
func (f *LLMFactory) Resolve(byoAPIKey string) (interfaces.LLM, error) {
	provider := strings.ToLower(strings.TrimSpace(f.config.Provider))

	switch provider {
	case "stub", "local_stub", "test":
		f.logger.Warn(context.Background(), "Using deterministic stub LLM", map[string]interface{}{
			"provider": provider,
		})
		return f.wrap(stub.New()), nil
	case "openai_compatible":
	default:
		return nil, fmt.Errorf("%w: LLM provider %q not supported", ErrImproperlyConfigured, f.config.Provider)
	}

	var selectedKey string
	switch {
	case f.config.AllowBYOKey && byoAPIKey != "":
		selectedKey = byoAPIKey
	case f.config.CostMode == config.CostModeBYOKey:
		selectedKey = byoAPIKey
	case f.config.CostMode == config.CostModePaid || f.config.CostMode == config.CostModeHybrid:
		selectedKey = f.config.APIKey
		if selectedKey == "" && f.config.AllowBYOKey {
			selectedKey = byoAPIKey
		}
	}

	if selectedKey == "" {
		if f.config.CostMode == config.CostModeBYOKey {
			return nil, fmt.Errorf("%w: cost mode byo_key requires a caller-supplied API key", ErrImproperlyConfigured)
		}
		f.logger.Warn(context.Background(), "No LLM API key configured; falling back to stub", map[string]interface{}{
			"cost_mode": f.config.CostMode,
		})
		return f.wrap(stub.New(stub.WithCannedResponse(KeylessStubResponse))), nil
	}

	return f.wrap(openai.New(
		f.config.Provider,
		f.config.Model,
		selectedKey,
		f.config.BaseURL,
		openai.WithTimeout(time.Duration(f.config.TimeoutSec)*time.Second),
		openai.WithMaxTokens(f.config.MaxTokens),
		openai.WithLogger(f.logger),
	)), nil
}

func (f *LLMFactory) wrap(invoker interfaces.LLM) interfaces.LLM {
	if !f.traced {
		return invoker
	}
	return tracing.NewLLMMiddleware(invoker, tracing.WithMaxChars(f.traceMaxChars))
}

// Package agent implements the conversational orchestration pipeline: intent
// routing, retrieval, prompt building, LLM invocation, guardrail validation
// and fallback synthesis, wrapped in metrics and sampled tracing.
//
// Every terminal path produces a complete response; no failure of any
// upstream dependency may cross the orchestrator boundary.
package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
	"github.com/libreria-aurora/aurora-agent/pkg/observability"
	"github.com/libreria-aurora/aurora-agent/pkg/retrieval"
	"github.com/libreria-aurora/aurora-agent/pkg/tools"
)

// Top-level error codes of the response contract.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidAction  = "invalid_action"
)

// RefineSearchHint is the follow-up suggestion attached when there are results.
const RefineSearchHint = "Puedes pedirme filtrar por autor, ISBN o categoría."

// Response is the externally-visible contract of both the chat and the
// action endpoints. Results always originate from retrieval or tools, never
// from the LLM.
type Response struct {
	Message string                   `json:"message"`
	Results []map[string]interface{} `json:"results"`
	Actions []map[string]interface{} `json:"actions"`
	Trace   map[string]interface{}   `json:"trace,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// MessageRequest is one chat turn.
type MessageRequest struct {
	Message      string
	K            int
	PreferVector bool
	IncludeTrace bool
	BYOAPIKey    string
}

// ActionRequest is one explicit action invocation.
type ActionRequest struct {
	Action       string
	Payload      map[string]interface{}
	IncludeTrace bool
}

// ProviderFactory resolves the LLM invoker for a request.
type ProviderFactory interface {
	Resolve(byoAPIKey string) (interfaces.LLM, error)
}

// Handler is the agent orchestrator.
type Handler struct {
	search        tools.Searcher
	toolset       *tools.Toolset
	factory       ProviderFactory
	metrics       *observability.MetricsStore
	logger        logging.Logger
	limits        GuardrailLimits
	promptCfg     PromptConfig
	sampleRate    float64
	maxTraceChars int
}

// HandlerOption configures the handler.
type HandlerOption func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithGuardrailLimits overrides the guardrail thresholds.
func WithGuardrailLimits(limits GuardrailLimits) HandlerOption {
	return func(h *Handler) {
		h.limits = limits
	}
}

// WithPromptConfig overrides the prompt limits.
func WithPromptConfig(cfg PromptConfig) HandlerOption {
	return func(h *Handler) {
		h.promptCfg = cfg
	}
}

// WithTraceSampling sets the sampled-logging rate and per-field truncation.
func WithTraceSampling(rate float64, maxChars int) HandlerOption {
	return func(h *Handler) {
		h.sampleRate = rate
		h.maxTraceChars = maxChars
	}
}

// NewHandler creates the orchestrator over its collaborators.
func NewHandler(search tools.Searcher, toolset *tools.Toolset, factory ProviderFactory, metrics *observability.MetricsStore, options ...HandlerOption) *Handler {
	h := &Handler{
		search:        search,
		toolset:       toolset,
		factory:       factory,
		metrics:       metrics,
		logger:        logging.New(),
		limits:        DefaultGuardrailLimits(),
		promptCfg:     DefaultPromptConfig(),
		sampleRate:    1.0,
		maxTraceChars: observability.DefaultTraceMaxChars,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// HandleMessage runs one chat turn through the full pipeline.
func (h *Handler) HandleMessage(ctx context.Context, req MessageRequest) Response {
	requestID := observability.NewRequestID()
	h.metrics.Increment("agent.messages", 1)

	cleaned := strings.TrimSpace(req.Message)
	if cleaned == "" {
		h.metrics.Increment("agent.invalid_requests", 1)
		response := Response{
			Message: EmptyMessageReply,
			Results: []map[string]interface{}{},
			Actions: []map[string]interface{}{},
			Error:   ErrCodeInvalidRequest,
		}
		if req.IncludeTrace {
			response.Trace = map[string]interface{}{"request_id": requestID, "degraded": true}
		}
		return response
	}

	intent := DetectIntent(cleaned)

	retrievalStart := time.Now()
	result, toolMeta := h.retrieve(ctx, cleaned, req, intent)
	retrievalMS := observability.ElapsedMS(retrievalStart)
	h.metrics.RecordTiming("retrieval", retrievalMS)

	actions := defaultActions(result.Results)

	llmStart := time.Now()
	message, llmMeta := h.generate(ctx, cleaned, result, req.BYOAPIKey)
	llmMS := observability.ElapsedMS(llmStart)
	h.metrics.RecordTiming("llm", llmMS)

	var trace map[string]interface{}
	if req.IncludeTrace {
		trace = map[string]interface{}{
			"request_id": requestID,
			"query":      result.Query,
			"k":          result.K,
			"source":     result.Source,
			"degraded":   result.Degraded,
			"warnings":   result.Warnings,
			"timings_ms": map[string]interface{}{"retrieval": retrievalMS, "llm": llmMS},
			"llm":        llmMeta,
		}
		if toolMeta != nil {
			trace["tool"] = toolMeta
		}
	}

	if observability.ShouldSampleTrace(h.sampleRate) {
		h.logger.Info(ctx, "agent message handled", map[string]interface{}{
			"request_id":   requestID,
			"query":        observability.TruncateText(result.Query, h.maxTraceChars),
			"source":       result.Source,
			"degraded":     result.Degraded,
			"results":      len(result.Results),
			"retrieval_ms": retrievalMS,
			"llm_ms":       llmMS,
			"llm":          llmMeta,
		})
	}

	return Response{
		Message: message,
		Results: result.Results,
		Actions: actions,
		Trace:   trace,
	}
}

// retrieve executes the routed tool, or generic retrieval when no rule
// matched, always returning a complete retrieval result.
func (h *Handler) retrieve(ctx context.Context, cleaned string, req MessageRequest, intent Intent) (retrieval.Result, map[string]interface{}) {
	if intent.Tool == "" {
		return h.search.Search(ctx, cleaned, req.K, req.PreferVector), nil
	}

	var toolResult tools.ToolResult
	switch intent.Tool {
	case tools.NameLookupBook:
		toolResult = h.toolset.LookupBook(ctx, intent.BookID, intent.ISBN)
	case tools.NameFilterCatalog:
		toolResult = h.toolset.FilterCatalog(ctx, intent.Filters, req.K)
	}

	toolMeta := map[string]interface{}{
		"name":     intent.Tool,
		"ok":       toolResult.OK,
		"warnings": toolResult.Warnings,
	}
	if toolResult.Error != "" {
		toolMeta["error"] = toolResult.Error
	}

	k, warnings := retrieval.NormalizeK(req.K, []string{})
	warnings = append(warnings, toolResult.Warnings...)

	results := resultsFromData(toolResult.Data)
	degraded := toolResult.Error == tools.ErrCodePersistenceUnavailable
	return retrieval.Result{
		Query:    cleaned,
		K:        k,
		Source:   retrieval.SourceORM,
		Degraded: degraded,
		Results:  results,
		Warnings: warnings,
	}, toolMeta
}

// generate resolves and invokes the LLM, applying guardrails and coercion,
// and falls back to the deterministic synthesizer whenever the model cannot
// produce an acceptable reply.
func (h *Handler) generate(ctx context.Context, cleaned string, result retrieval.Result, byoAPIKey string) (string, map[string]interface{}) {
	invoker, err := h.factory.Resolve(byoAPIKey)
	if err != nil {
		h.metrics.Increment("agent.llm_failures", 1)
		message := FallbackMessage(result.Query, len(result.Results), result.Degraded, append(result.Warnings, err.Error()))
		return message, map[string]interface{}{"provider": "unconfigured", "error": err.Error()}
	}

	prompt := BuildPrompt(cleaned, result, h.promptCfg)
	llmResponse := invoker.Invoke(ctx, prompt)

	llmMeta := map[string]interface{}{
		"provider":   llmResponse.Provider,
		"model":      llmResponse.Model,
		"latency_ms": llmResponse.LatencyMS,
	}
	if llmResponse.PromptTokens != nil {
		llmMeta["prompt_tokens"] = *llmResponse.PromptTokens
	}
	if llmResponse.CompletionTokens != nil {
		llmMeta["completion_tokens"] = *llmResponse.CompletionTokens
	}

	failed := func(cause string) (string, map[string]interface{}) {
		h.metrics.Increment("agent.llm_failures", 1)
		llmMeta["provider"] = "failed"
		llmMeta["error"] = cause
		message := FallbackMessage(result.Query, len(result.Results), result.Degraded, append(result.Warnings, "LLM failed: "+cause))
		return message, llmMeta
	}

	if llmResponse.Err != nil {
		return failed(llmResponse.Err.Error())
	}
	content := strings.TrimSpace(llmResponse.Content)
	if content == "" {
		return failed("LLM returned empty content")
	}

	validation := ValidateMessage(content, h.limits)
	if validation.OK {
		return content, llmMeta
	}

	coerced := CoerceMessage(content, h.limits)
	if ValidateMessage(coerced, h.limits).OK {
		h.metrics.Increment("agent.guardrail_coerced", 1)
		llmMeta["coerced"] = true
		return coerced, llmMeta
	}

	h.metrics.Increment("agent.guardrail_rejected", 1)
	llmMeta["error"] = "guardrail_rejected: " + strings.Join(validation.Errors, ",")
	message := FallbackMessage(result.Query, len(result.Results), result.Degraded, result.Warnings)
	return message, llmMeta
}

// HandleAction dispatches one explicit action over the closed action enum
// and wraps the tool result into the chat response contract.
func (h *Handler) HandleAction(ctx context.Context, req ActionRequest) Response {
	h.metrics.Increment("agent.actions", 1)
	requestID := observability.NewRequestID()
	action := strings.TrimSpace(req.Action)

	var toolResult tools.ToolResult
	switch action {
	case tools.NameAddToCart:
		toolResult = h.toolset.AddToCart(ctx,
			payloadInt(req.Payload, "user_id"),
			payloadInt(req.Payload, "book_id"),
			payloadQuantity(req.Payload),
		)
	case tools.NameReserveBook:
		toolResult = h.toolset.ReserveBook(ctx,
			payloadInt(req.Payload, "user_id"),
			payloadInt(req.Payload, "book_id"),
			payloadQuantity(req.Payload),
		)
	case tools.NameOrderStatus:
		orderID := payloadInt(req.Payload, "order_id")
		if orderID == 0 {
			orderID = payloadInt(req.Payload, "pedido_id")
		}
		toolResult = h.toolset.OrderStatus(ctx, payloadInt(req.Payload, "user_id"), orderID)
	default:
		h.metrics.Increment("agent.invalid_actions", 1)
		return Response{
			Message: fmt.Sprintf("Acción '%s' no soportada.", action),
			Results: []map[string]interface{}{},
			Actions: []map[string]interface{}{},
			Error:   ErrCodeInvalidAction,
		}
	}

	results := resultsFromData(toolResult.Data)

	var message string
	if toolResult.OK {
		message = fmt.Sprintf("Acción '%s' completada.", action)
	} else {
		message = fmt.Sprintf("No pude completar la acción '%s' (%s).", action, toolResult.Error)
	}

	actionEntry := map[string]interface{}{
		"type":     "action_result",
		"action":   action,
		"ok":       toolResult.OK,
		"warnings": toolResult.Warnings,
		"data":     toolResult.Data,
	}
	var topError string
	if !toolResult.OK {
		actionEntry["error"] = toolResult.Error
		topError = toolResult.Error
	}

	response := Response{
		Message: message,
		Results: results,
		Actions: []map[string]interface{}{actionEntry},
		Error:   topError,
	}
	if req.IncludeTrace {
		response.Trace = map[string]interface{}{
			"request_id": requestID,
			"action":     action,
			"tool": map[string]interface{}{
				"name":     action,
				"ok":       toolResult.OK,
				"warnings": toolResult.Warnings,
			},
		}
	}

	if observability.ShouldSampleTrace(h.sampleRate) {
		h.logger.Info(ctx, "agent action handled", map[string]interface{}{
			"request_id": requestID,
			"action":     action,
			"ok":         toolResult.OK,
			"error":      toolResult.Error,
		})
	}
	return response
}

// resultsFromData derives the response results from a tool payload: a
// "results" list when present, else a singleton "result" entry.
func resultsFromData(data map[string]interface{}) []map[string]interface{} {
	if data == nil {
		return []map[string]interface{}{}
	}
	if list, ok := data["results"].([]map[string]interface{}); ok {
		return list
	}
	if list, ok := data["results"].([]interface{}); ok {
		out := make([]map[string]interface{}, 0, len(list))
		for _, raw := range list {
			if item, ok := raw.(map[string]interface{}); ok {
				out = append(out, item)
			}
		}
		return out
	}
	if single, ok := data["result"].(map[string]interface{}); ok {
		return []map[string]interface{}{single}
	}
	return []map[string]interface{}{}
}

// defaultActions suggests follow-ups from the retrieved results: a view_book
// action per result (first five) plus a refine hint when anything matched.
func defaultActions(results []map[string]interface{}) []map[string]interface{} {
	actions := []map[string]interface{}{}

	limit := len(results)
	if limit > 5 {
		limit = 5
	}
	for _, item := range results[:limit] {
		id, ok := libroID(item)
		if !ok {
			continue
		}
		actions = append(actions, map[string]interface{}{"type": "view_book", "libro_id": id})
	}

	if len(results) > 0 {
		actions = append(actions, map[string]interface{}{"type": "refine_search", "hint": RefineSearchHint})
	}
	return actions
}

func libroID(item map[string]interface{}) (int64, bool) {
	if id, ok := toInt64(item["libro_id"]); ok {
		return id, true
	}
	if metadata, ok := item["metadata"].(map[string]interface{}); ok {
		return toInt64(metadata["libro_id"])
	}
	return 0, false
}

func toInt64(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func payloadInt(payload map[string]interface{}, key string) int64 {
	if payload == nil {
		return 0
	}
	value, _ := toInt64(payload[key])
	return value
}

func payloadQuantity(payload map[string]interface{}) int {
	if payload == nil {
		return 1
	}
	raw, present := payload["cantidad"]
	if !present {
		raw, present = payload["quantity"]
	}
	if !present {
		return 1
	}
	if value, ok := toInt64(raw); ok {
		return int(value)
	}
	return 1
}

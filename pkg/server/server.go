// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libreria-aurora/aurora-agent/pkg/agent"
	"github.com/libreria-aurora/aurora-agent/pkg/config"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
	"github.com/libreria-aurora/aurora-agent/pkg/observability"
	"github.com/libreria-aurora/aurora-agent/pkg/retrieval"
)

// HeaderBYOAPIKey carries a caller-supplied LLM key. It is read exactly once
// per request and never logged or echoed back.
const HeaderBYOAPIKey = "X-LLM-API-Key"

const maxSearchK = 50

// VectorProbe reports whether the vector backend is currently usable.
type VectorProbe interface {
	Available(ctx context.Context) bool
}

// Searcher runs one retrieval pass.
type Searcher interface {
	Search(ctx context.Context, query string, k int, preferVector bool) retrieval.Result
}

// Server wires the agent handler into HTTP routes.
type Server struct {
	handler *agent.Handler
	search  Searcher
	probe   VectorProbe
	cfg     config.Config
	metrics *observability.MetricsStore
	logger  logging.Logger
	engine  *gin.Engine
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVectorProbe sets the vector availability probe for the status endpoint.
func WithVectorProbe(probe VectorProbe) Option {
	return func(s *Server) {
		s.probe = probe
	}
}

// New builds the server and registers its routes.
func New(handler *agent.Handler, search Searcher, cfg config.Config, metrics *observability.MetricsStore, options ...Option) *Server {
	s := &Server{
		handler: handler,
		search:  search,
		cfg:     cfg,
		metrics: metrics,
		logger:  logging.New(),
	}
	for _, option := range options {
		option(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	api := engine.Group("/api/agent")
	api.POST("", s.handleMessage)
	api.GET("/search", s.handleSearch)
	api.POST("/actions", s.handleAction)
	api.GET("/status", s.handleStatus)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "http request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed_ms": observability.ElapsedMS(start),
		})
	}
}

type messageBody struct {
	Message      string `json:"message"`
	K            *int   `json:"k"`
	PreferVector *bool  `json:"prefer_vector"`
	IncludeTrace bool   `json:"trace"`
}

type actionBody struct {
	Action       string                 `json:"action"`
	Payload      map[string]interface{} `json:"payload"`
	IncludeTrace bool                   `json:"trace"`
}

func (s *Server) handleMessage(c *gin.Context) {
	var body messageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, agent.Response{
			Message: "Cuerpo de la petición inválido.",
			Results: []map[string]interface{}{},
			Actions: []map[string]interface{}{},
			Error:   agent.ErrCodeInvalidRequest,
		})
		return
	}

	preferVector := true
	if body.PreferVector != nil {
		preferVector = *body.PreferVector
	}

	k := retrieval.DefaultK
	if body.K != nil {
		k = *body.K
	}

	response := s.handler.HandleMessage(c.Request.Context(), agent.MessageRequest{
		Message:      body.Message,
		K:            clampK(k),
		PreferVector: preferVector,
		IncludeTrace: body.IncludeTrace,
		BYOAPIKey:    strings.TrimSpace(c.GetHeader(HeaderBYOAPIKey)),
	})
	c.JSON(statusFor(response), response)
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")

	k := retrieval.DefaultK
	if raw := c.Query("k"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			k = parsed
		}
	}
	k = clampK(k)

	preferVector := true
	if raw := c.Query("prefer_vector"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			preferVector = parsed
		}
	}

	result := s.search.Search(c.Request.Context(), query, k, preferVector)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAction(c *gin.Context) {
	var body actionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, agent.Response{
			Message: "Cuerpo de la petición inválido.",
			Results: []map[string]interface{}{},
			Actions: []map[string]interface{}{},
			Error:   agent.ErrCodeInvalidRequest,
		})
		return
	}

	response := s.handler.HandleAction(c.Request.Context(), agent.ActionRequest{
		Action:       body.Action,
		Payload:      body.Payload,
		IncludeTrace: body.IncludeTrace,
	})
	c.JSON(statusFor(response), response)
}

func (s *Server) handleStatus(c *gin.Context) {
	vectorAvailable := false
	if s.probe != nil {
		vectorAvailable = s.probe.Available(c.Request.Context())
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"vector_store": gin.H{
			"available":  vectorAvailable,
			"collection": s.cfg.VectorStore.Collection,
		},
		"llm": gin.H{
			"provider":  s.cfg.LLM.Provider,
			"model":     s.cfg.LLM.Model,
			"cost_mode": s.cfg.LLM.CostMode,
			"api_key":   observability.RedactAPIKey(s.cfg.LLM.APIKey),
		},
		"metrics": s.metrics.Snapshot(),
	})
}

func clampK(k int) int {
	if k < 1 {
		return 1
	}
	if k > maxSearchK {
		return maxSearchK
	}
	return k
}

// statusFor maps the response contract to HTTP: 400 exactly when the
// top-level error is set, 200 otherwise. Degraded results are still 200.
func statusFor(response agent.Response) int {
	if response.Error != "" {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

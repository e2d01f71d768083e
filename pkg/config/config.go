// Package config loads the agent configuration from the environment.
//
// Sources (highest to lowest priority):
//  1. Environment variables
//  2. Default values
//
// The LLM credential held here is the server-side key; caller-supplied BYO
// keys arrive per request and are never part of this configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cost modes governing which LLM credential source is eligible.
const (
	CostModePaid   = "paid"
	CostModeBYOKey = "byo_key"
	CostModeHybrid = "hybrid"
)

// ErrInvalidCostMode indicates LLM_COST_MODE is outside the allowed set.
var ErrInvalidCostMode = errors.New("invalid cost mode")

// LLM holds the provider selection and invocation limits.
type LLM struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	TimeoutSec  int
	MaxTokens   int
	CostMode    string
	AllowBYOKey bool
}

// VectorStore holds the semantic search backend configuration.
type VectorStore struct {
	DBDir           string
	ManifestPath    string
	Collection      string
	EmbeddingModel  string
	EmbeddingDevice string
	Normalize       bool
	NormalizeSet    bool // true when the env var was given explicitly
	Host            string
	Scheme          string
	APIKey          string
}

// Database holds the relational catalog connection string.
type Database struct {
	URL string
}

// Trace holds observability knobs.
type Trace struct {
	SampleRate float64
	MaxChars   int
}

// Config is the full agent configuration.
type Config struct {
	LLM         LLM
	VectorStore VectorStore
	Database    Database
	Trace       Trace
	HTTPAddr    string
	LogLevel    string
}

// Load reads the configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LLM_PROVIDER", "openai_compatible")
	v.SetDefault("LLM_MODEL", "llama-3-8b-instruct")
	v.SetDefault("LLM_TIMEOUT_SEC", 15)
	v.SetDefault("LLM_MAX_TOKENS", 512)
	v.SetDefault("LLM_COST_MODE", CostModePaid)
	v.SetDefault("LLM_ALLOW_BYO_KEY", false)

	v.SetDefault("VECTOR_DB_DIR", "./vector_db")
	v.SetDefault("VECTOR_EMBEDDING_DEVICE", "cpu")
	v.SetDefault("WEAVIATE_HOST", "localhost:8080")
	v.SetDefault("WEAVIATE_SCHEME", "http")

	v.SetDefault("AGENT_TRACE_SAMPLE_RATE", 1.0)
	v.SetDefault("AGENT_TRACE_MAX_CHARS", 400)

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")

	costMode := strings.ToLower(strings.TrimSpace(v.GetString("LLM_COST_MODE")))
	switch costMode {
	case CostModePaid, CostModeBYOKey, CostModeHybrid:
	default:
		return nil, fmt.Errorf("%w: %q (expected paid, byo_key or hybrid)", ErrInvalidCostMode, costMode)
	}

	cfg := &Config{
		LLM: LLM{
			Provider:    strings.TrimSpace(v.GetString("LLM_PROVIDER")),
			Model:       strings.TrimSpace(v.GetString("LLM_MODEL")),
			BaseURL:     strings.TrimSpace(v.GetString("LLM_BASE_URL")),
			APIKey:      strings.TrimSpace(v.GetString("LLM_API_KEY")),
			TimeoutSec:  v.GetInt("LLM_TIMEOUT_SEC"),
			MaxTokens:   v.GetInt("LLM_MAX_TOKENS"),
			CostMode:    costMode,
			AllowBYOKey: v.GetBool("LLM_ALLOW_BYO_KEY"),
		},
		VectorStore: VectorStore{
			DBDir:           strings.TrimSpace(v.GetString("VECTOR_DB_DIR")),
			ManifestPath:    strings.TrimSpace(v.GetString("VECTOR_DB_MANIFEST")),
			Collection:      strings.TrimSpace(v.GetString("VECTOR_COLLECTION")),
			EmbeddingModel:  strings.TrimSpace(v.GetString("VECTOR_EMBEDDING_MODEL")),
			EmbeddingDevice: strings.TrimSpace(v.GetString("VECTOR_EMBEDDING_DEVICE")),
			Normalize:       v.GetBool("VECTOR_EMBEDDING_NORMALIZE"),
			NormalizeSet:    v.IsSet("VECTOR_EMBEDDING_NORMALIZE"),
			Host:            strings.TrimSpace(v.GetString("WEAVIATE_HOST")),
			Scheme:          strings.TrimSpace(v.GetString("WEAVIATE_SCHEME")),
			APIKey:          strings.TrimSpace(v.GetString("WEAVIATE_API_KEY")),
		},
		Database: Database{
			URL: strings.TrimSpace(v.GetString("DATABASE_URL")),
		},
		Trace: Trace{
			SampleRate: v.GetFloat64("AGENT_TRACE_SAMPLE_RATE"),
			MaxChars:   v.GetInt("AGENT_TRACE_MAX_CHARS"),
		},
		HTTPAddr: v.GetString("HTTP_ADDR"),
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if cfg.LLM.TimeoutSec <= 0 {
		cfg.LLM.TimeoutSec = 15
	}
	if cfg.Trace.MaxChars <= 0 {
		cfg.Trace.MaxChars = 400
	}
	return cfg, nil
}

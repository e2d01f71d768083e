package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai_compatible", cfg.LLM.Provider)
	assert.Equal(t, CostModePaid, cfg.LLM.CostMode)
	assert.False(t, cfg.LLM.AllowBYOKey)
	assert.Equal(t, 15, cfg.LLM.TimeoutSec)
	assert.Equal(t, 512, cfg.LLM.MaxTokens)

	assert.Equal(t, "./vector_db", cfg.VectorStore.DBDir)
	assert.Equal(t, "localhost:8080", cfg.VectorStore.Host)
	assert.Equal(t, "http", cfg.VectorStore.Scheme)
	assert.False(t, cfg.VectorStore.NormalizeSet)

	assert.Equal(t, 1.0, cfg.Trace.SampleRate)
	assert.Equal(t, 400, cfg.Trace.MaxChars)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "stub")
	t.Setenv("LLM_COST_MODE", "hybrid")
	t.Setenv("LLM_ALLOW_BYO_KEY", "true")
	t.Setenv("LLM_API_KEY", "  sk-server-key  ")
	t.Setenv("VECTOR_COLLECTION", "book_catalog_v2")
	t.Setenv("VECTOR_EMBEDDING_NORMALIZE", "false")
	t.Setenv("DATABASE_URL", "postgres://localhost/aurora")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "stub", cfg.LLM.Provider)
	assert.Equal(t, CostModeHybrid, cfg.LLM.CostMode)
	assert.True(t, cfg.LLM.AllowBYOKey)
	assert.Equal(t, "sk-server-key", cfg.LLM.APIKey, "credentials are trimmed")
	assert.Equal(t, "book_catalog_v2", cfg.VectorStore.Collection)
	assert.False(t, cfg.VectorStore.Normalize)
	assert.True(t, cfg.VectorStore.NormalizeSet)
	assert.Equal(t, "postgres://localhost/aurora", cfg.Database.URL)
}

func TestLoadCostModeValidation(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantErr  bool
		wantMode string
	}{
		{name: "paid", value: "paid", wantMode: CostModePaid},
		{name: "byo_key", value: "byo_key", wantMode: CostModeBYOKey},
		{name: "hybrid", value: "hybrid", wantMode: CostModeHybrid},
		{name: "case and spacing normalized", value: "  PAID ", wantMode: CostModePaid},
		{name: "unknown rejected", value: "free", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LLM_COST_MODE", tt.value)

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCostMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, cfg.LLM.CostMode)
		})
	}
}

func TestLoadRepairsBadTimeout(t *testing.T) {
	t.Setenv("LLM_TIMEOUT_SEC", "-5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.LLM.TimeoutSec)
}

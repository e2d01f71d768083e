// The aurora-agent command runs the bookstore conversational agent as an
// HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/libreria-aurora/aurora-agent/pkg/agent"
	catalogpg "github.com/libreria-aurora/aurora-agent/pkg/catalog/postgres"
	commercepg "github.com/libreria-aurora/aurora-agent/pkg/commerce/postgres"
	"github.com/libreria-aurora/aurora-agent/pkg/config"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
	"github.com/libreria-aurora/aurora-agent/pkg/observability"
	"github.com/libreria-aurora/aurora-agent/pkg/retrieval"
	"github.com/libreria-aurora/aurora-agent/pkg/server"
	"github.com/libreria-aurora/aurora-agent/pkg/tools"
	"github.com/libreria-aurora/aurora-agent/pkg/tracing"
	weaviatestore "github.com/libreria-aurora/aurora-agent/pkg/vectorstore/weaviate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "aurora-agent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewWithLevel(cfg.LogLevel)
	ctx := context.Background()

	shutdownTracing, err := tracing.InitTracerProvider("aurora-agent", cfg.Trace.SampleRate)
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "Failed to flush traces", map[string]interface{}{"error": err.Error()})
		}
	}()

	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("database pool: %w", err)
	}
	defer pool.Close()

	catalog := catalogpg.New(pool, catalogpg.WithLogger(logger))
	commerce := commercepg.New(pool, commercepg.WithLogger(logger))

	vectorStore := weaviatestore.New(func() weaviatestore.Config {
		return weaviatestore.Config{
			DBDir:           cfg.VectorStore.DBDir,
			ManifestPath:    cfg.VectorStore.ManifestPath,
			Collection:      cfg.VectorStore.Collection,
			EmbeddingModel:  cfg.VectorStore.EmbeddingModel,
			EmbeddingDevice: cfg.VectorStore.EmbeddingDevice,
			Normalize:       cfg.VectorStore.Normalize,
			NormalizeSet:    cfg.VectorStore.NormalizeSet,
			Host:            cfg.VectorStore.Host,
			Scheme:          cfg.VectorStore.Scheme,
			APIKey:          cfg.VectorStore.APIKey,
		}
	}, weaviatestore.WithLogger(logger))

	engine := retrieval.New(vectorStore, catalog, retrieval.WithLogger(logger))
	toolset := tools.New(catalog, commerce, engine, tools.WithLogger(logger))

	metrics := observability.NewMetricsStore()
	factory := agent.NewLLMFactory(cfg.LLM,
		agent.WithFactoryLogger(logger),
		agent.WithTracedInvokers(cfg.Trace.MaxChars),
	)

	handler := agent.NewHandler(engine, toolset, factory, metrics,
		agent.WithLogger(logger),
		agent.WithTraceSampling(cfg.Trace.SampleRate, cfg.Trace.MaxChars),
	)

	srv := server.New(handler, engine, *cfg, metrics,
		server.WithLogger(logger),
		server.WithVectorProbe(vectorStore),
	)

	logger.Info(ctx, "Starting aurora-agent", map[string]interface{}{
		"addr":      cfg.HTTPAddr,
		"provider":  cfg.LLM.Provider,
		"model":     cfg.LLM.Model,
		"cost_mode": cfg.LLM.CostMode,
	})
	return srv.Run(cfg.HTTPAddr)
}

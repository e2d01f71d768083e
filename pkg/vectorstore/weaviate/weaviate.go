// Package weaviate adapts a Weaviate collection to the agent's vector search
// interface. Missing artifacts, missing embedding configuration and an
// unreachable service all surface as interfaces.ErrVectorStoreUnavailable so
// retrieval can fall back to exact search.
package weaviate

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
)

// Store implements interfaces.VectorSearcher over a Weaviate collection.
//
// Configuration is re-resolved on every query (manifest reads are cheap) while
// the client handle is cached and reused for as long as the resolved
// configuration tuple stays the same.
type Store struct {
	configSource func() Config
	logger       logging.Logger

	mu        sync.Mutex
	cached    *weaviate.Client
	cachedKey string
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store. configSource is called per query so environment or
// manifest changes are picked up without restarting.
func New(configSource func() Config, options ...Option) *Store {
	s := &Store{
		configSource: configSource,
		logger:       logging.New(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// client returns the cached Weaviate client for the resolved configuration,
// rebuilding it when the configuration tuple changed.
func (s *Store) client(cfg Config) (*weaviate.Client, error) {
	key := cfg.cacheKey()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && s.cachedKey == key {
		return s.cached, nil
	}

	clientConfig := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		clientConfig.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build client: %v", interfaces.ErrVectorStoreUnavailable, err)
	}

	s.cached = client
	s.cachedKey = key
	return client, nil
}

// checkArtifacts validates the local artifact presence and the embedding
// configuration before any network round trip.
func checkArtifacts(cfg Config) error {
	if cfg.DBDir != "" {
		if _, err := os.Stat(cfg.DBDir); err != nil {
			return fmt.Errorf("%w: vector DB directory not found: %s", interfaces.ErrVectorStoreUnavailable, cfg.DBDir)
		}
	}
	if cfg.EmbeddingModel == "" {
		return fmt.Errorf("%w: embedding model not set and manifest missing or invalid", interfaces.ErrVectorStoreUnavailable)
	}
	return nil
}

// Available reports whether the store is usable right now: artifacts in
// place, embedding configured, and the service answering liveness checks.
func (s *Store) Available(ctx context.Context) bool {
	cfg := Resolve(s.configSource())
	if err := checkArtifacts(cfg); err != nil {
		return false
	}
	client, err := s.client(cfg)
	if err != nil {
		return false
	}
	live, err := client.Misc().LiveChecker().Do(ctx)
	return err == nil && live
}

// Query implements interfaces.VectorSearcher.
func (s *Store) Query(ctx context.Context, query string, k int) ([]interfaces.VectorHit, error) {
	cfg := Resolve(s.configSource())
	if err := checkArtifacts(cfg); err != nil {
		return nil, err
	}

	client, err := s.client(cfg)
	if err != nil {
		return nil, err
	}

	nearText := client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "metadata", Fields: []graphql.Field{
			{Name: "libro_id"},
			{Name: "titulo"},
		}},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "distance"},
		}},
	}

	result, err := client.GraphQL().Get().
		WithClassName(cfg.Collection).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", interfaces.ErrVectorStoreUnavailable, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql error: %s", interfaces.ErrVectorStoreUnavailable, result.Errors[0].Message)
	}

	hits := parseHits(result.Data, cfg.Collection)
	s.logger.Debug(ctx, "Vector query completed", map[string]interface{}{
		"collection": cfg.Collection,
		"k":          k,
		"hits":       len(hits),
	})
	return hits, nil
}

func parseHits(data map[string]models.JSONObject, collection string) []interfaces.VectorHit {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := get[collection].([]interface{})
	if !ok {
		return nil
	}

	hits := make([]interfaces.VectorHit, 0, len(objects))
	for _, raw := range objects {
		object, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		hit := interfaces.VectorHit{}
		if content, ok := object["content"].(string); ok {
			hit.Document = content
		}
		if metadata, ok := object["metadata"].(map[string]interface{}); ok {
			hit.Metadata = metadata
		}
		if additional, ok := object["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				hit.ID = id
			}
			if distance, ok := additional["distance"].(float64); ok {
				d := distance
				hit.Distance = &d
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
	weaviatestore "github.com/libreria-aurora/aurora-agent/pkg/vectorstore/weaviate"
)

func setupArtifacts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	manifest := `{"collection": "book_catalog", "embeddings": {"model": "all-MiniLM-L6-v2", "normalize": true}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644))
	return dir
}

func setupMockServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodPost && r.URL.Path == "/v1/graphql" {
			distance := 0.18
			err := json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"Get": map[string]interface{}{
						"book_catalog": []map[string]interface{}{
							{
								"content": "Dune - Frank Herbert. Ciencia ficción.",
								"metadata": map[string]interface{}{
									"libro_id": 7,
									"titulo":   "Dune",
								},
								"_additional": map[string]interface{}{
									"id":       "doc-7",
									"distance": distance,
								},
							},
							{
								"content": "Hyperion - Dan Simmons.",
								"metadata": map[string]interface{}{
									"libro_id": 8,
									"titulo":   "Hyperion",
								},
								"_additional": map[string]interface{}{
									"id":       "doc-8",
									"distance": 0.25,
								},
							},
						},
					},
				},
			})
			if err != nil {
				t.Errorf("failed to encode graphql response: %v", err)
			}
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
}

func newStore(t *testing.T, host string, dir string) *weaviatestore.Store {
	t.Helper()
	return weaviatestore.New(func() weaviatestore.Config {
		return weaviatestore.Config{
			DBDir:  dir,
			Host:   host,
			Scheme: "http",
		}
	}, weaviatestore.WithLogger(logging.NewNoOpLogger()))
}

func TestQueryParsesHits(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()
	host := strings.TrimPrefix(server.URL, "http://")

	store := newStore(t, host, setupArtifacts(t))

	hits, err := store.Query(context.Background(), "ciencia ficción", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "doc-7", hits[0].ID)
	assert.Equal(t, "Dune - Frank Herbert. Ciencia ficción.", hits[0].Document)
	require.NotNil(t, hits[0].Distance)
	assert.InDelta(t, 0.18, *hits[0].Distance, 1e-9)
	assert.Equal(t, "Dune", hits[0].Metadata["titulo"])

	result := hits[0].AsResult()
	assert.Equal(t, "doc-7", result["id"])
	assert.Equal(t, hits[0].Metadata, result["metadata"])
}

func TestQueryMissingArtifactsDir(t *testing.T) {
	store := newStore(t, "localhost:8080", filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := store.Query(context.Background(), "dune", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrVectorStoreUnavailable)
	assert.Contains(t, err.Error(), "vector DB directory not found")
}

func TestQueryMissingEmbeddingModel(t *testing.T) {
	// Directory exists but holds no manifest and no explicit model is set.
	store := newStore(t, "localhost:8080", t.TempDir())

	_, err := store.Query(context.Background(), "dune", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrVectorStoreUnavailable)
	assert.Contains(t, err.Error(), "embedding model not set")
}

func TestQueryServiceUnreachable(t *testing.T) {
	server := setupMockServer(t)
	host := strings.TrimPrefix(server.URL, "http://")
	server.Close()

	store := newStore(t, host, setupArtifacts(t))

	_, err := store.Query(context.Background(), "dune", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrVectorStoreUnavailable)
}

func TestQueryGraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{
				{"message": "class book_catalog not found"},
			},
		})
		if err != nil {
			t.Errorf("failed to encode graphql error: %v", err)
		}
	}))
	defer server.Close()
	host := strings.TrimPrefix(server.URL, "http://")

	store := newStore(t, host, setupArtifacts(t))

	_, err := store.Query(context.Background(), "dune", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrVectorStoreUnavailable)
	assert.Contains(t, err.Error(), "class book_catalog not found")
}

func TestAvailable(t *testing.T) {
	liveServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/.well-known/live" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer liveServer.Close()
	host := strings.TrimPrefix(liveServer.URL, "http://")

	t.Run("live service with artifacts", func(t *testing.T) {
		store := newStore(t, host, setupArtifacts(t))
		assert.True(t, store.Available(context.Background()))
	})

	t.Run("missing artifacts", func(t *testing.T) {
		store := newStore(t, host, filepath.Join(t.TempDir(), "missing"))
		assert.False(t, store.Available(context.Background()))
	})

	t.Run("dead service", func(t *testing.T) {
		deadServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		deadHost := strings.TrimPrefix(deadServer.URL, "http://")
		deadServer.Close()

		store := newStore(t, deadHost, setupArtifacts(t))
		assert.False(t, store.Available(context.Background()))
	})
}

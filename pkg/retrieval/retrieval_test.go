package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
	"github.com/libreria-aurora/aurora-agent/pkg/retrieval"
)

type fakeVector struct {
	hits []interfaces.VectorHit
	err  error

	lastQuery string
	lastK     int
}

func (f *fakeVector) Query(_ context.Context, query string, k int) ([]interfaces.VectorHit, error) {
	f.lastQuery = query
	f.lastK = k
	return f.hits, f.err
}

type fakeCatalog struct {
	books []interfaces.Book
	err   error

	lastQuery string
}

func (f *fakeCatalog) SearchText(_ context.Context, query string, _ int) ([]interfaces.Book, error) {
	f.lastQuery = query
	return f.books, f.err
}

func (f *fakeCatalog) FindByID(context.Context, int64) (*interfaces.Book, error) {
	return nil, interfaces.ErrNotFound
}

func (f *fakeCatalog) FindByISBN(context.Context, string) (*interfaces.Book, error) {
	return nil, interfaces.ErrNotFound
}

func (f *fakeCatalog) Filter(context.Context, interfaces.BookFilter, int) ([]interfaces.Book, error) {
	return f.books, f.err
}

func newEngine(vector interfaces.VectorSearcher, catalog interfaces.Catalog) *retrieval.Engine {
	return retrieval.New(vector, catalog, retrieval.WithLogger(logging.NewNoOpLogger()))
}

func TestSearchVectorPath(t *testing.T) {
	distance := 0.25
	vector := &fakeVector{hits: []interfaces.VectorHit{
		{ID: "doc1", Document: "Dune - Frank Herbert", Metadata: map[string]interface{}{"libro_id": int64(7)}, Distance: &distance},
	}}
	catalog := &fakeCatalog{}

	result := newEngine(vector, catalog).Search(context.Background(), "ciencia ficción", 3, true)

	assert.Equal(t, retrieval.SourceVector, result.Source)
	assert.False(t, result.Degraded)
	assert.Equal(t, 3, result.K)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.Results, 1)
	assert.Equal(t, "doc1", result.Results[0]["id"])
	assert.Equal(t, "ciencia ficción", vector.lastQuery)
	assert.Empty(t, catalog.lastQuery, "catalog must not be touched when the vector path succeeds")
}

func TestSearchFallsBackToCatalog(t *testing.T) {
	vector := &fakeVector{err: errors.New("vector DB directory not found")}
	catalog := &fakeCatalog{books: []interfaces.Book{
		{ID: 1, Titulo: "Dune", Autor: "Frank Herbert"},
		{ID: 2, Titulo: "Hyperion", Autor: "Dan Simmons"},
	}}

	result := newEngine(vector, catalog).Search(context.Background(), "dune", 5, true)

	assert.Equal(t, retrieval.SourceORM, result.Source)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Results, 2)
	assert.Contains(t, result.Warnings, "vector DB directory not found")
}

func TestSearchSkipsVectorWhenNotPreferred(t *testing.T) {
	vector := &fakeVector{hits: []interfaces.VectorHit{{ID: "doc1"}}}
	catalog := &fakeCatalog{books: []interfaces.Book{{ID: 1, Titulo: "Dune"}}}

	result := newEngine(vector, catalog).Search(context.Background(), "dune", 5, false)

	assert.Equal(t, retrieval.SourceORM, result.Source)
	assert.True(t, result.Degraded)
	assert.Empty(t, vector.lastQuery, "vector must not be queried when preferVector is false")
}

func TestSearchNilVectorBackend(t *testing.T) {
	catalog := &fakeCatalog{books: []interfaces.Book{{ID: 1, Titulo: "Dune"}}}

	result := newEngine(nil, catalog).Search(context.Background(), "dune", 5, true)

	assert.Equal(t, retrieval.SourceORM, result.Source)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Results, 1)
}

func TestSearchEmptyQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		k            int
		preferVector bool
		wantSource   string
	}{
		{name: "blank prefer vector", query: "   ", k: 5, preferVector: true, wantSource: retrieval.SourceVector},
		{name: "blank prefer exact", query: "", k: 5, preferVector: false, wantSource: retrieval.SourceORM},
		{name: "blank with bad k", query: "", k: 0, preferVector: true, wantSource: retrieval.SourceVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vector := &fakeVector{}
			catalog := &fakeCatalog{}

			result := newEngine(vector, catalog).Search(context.Background(), tt.query, tt.k, tt.preferVector)

			assert.Equal(t, "", result.Query)
			assert.Equal(t, tt.wantSource, result.Source)
			assert.True(t, result.Degraded)
			assert.Empty(t, result.Results)
			assert.Equal(t, []string{"Empty query"}, result.Warnings)
			assert.Empty(t, vector.lastQuery, "no backend may be called for an empty query")
			assert.Empty(t, catalog.lastQuery, "no backend may be called for an empty query")
		})
	}
}

func TestSearchBothBackendsFail(t *testing.T) {
	vector := &fakeVector{err: errors.New("weaviate unreachable")}
	catalog := &fakeCatalog{err: errors.New("connection refused")}

	result := newEngine(vector, catalog).Search(context.Background(), "dune", 5, true)

	assert.Equal(t, retrieval.SourceORM, result.Source)
	assert.True(t, result.Degraded)
	assert.Empty(t, result.Results)
	assert.Contains(t, result.Warnings, "weaviate unreachable")
	assert.Contains(t, result.Warnings, "Catalog search failed: connection refused")
}

func TestNormalizeK(t *testing.T) {
	tests := []struct {
		name         string
		k            int
		wantK        int
		wantWarnings int
	}{
		{name: "positive unchanged", k: 3, wantK: 3, wantWarnings: 0},
		{name: "zero defaulted", k: 0, wantK: 5, wantWarnings: 1},
		{name: "negative defaulted", k: -2, wantK: 5, wantWarnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, warnings := retrieval.NormalizeK(tt.k, []string{})
			assert.Equal(t, tt.wantK, k)
			assert.Len(t, warnings, tt.wantWarnings)
		})
	}
}

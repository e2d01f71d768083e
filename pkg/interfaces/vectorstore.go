package interfaces

import (
	"context"
	"errors"
)

// ErrVectorStoreUnavailable is the typed condition raised when the semantic
// backend cannot serve a query (missing artifact, missing embedding model,
// unreachable service). Callers fall back to exact search on it, they never
// treat it as fatal.
var ErrVectorStoreUnavailable = errors.New("vector store unavailable")

// VectorHit is one semantic search result.
type VectorHit struct {
	ID       string
	Document string
	Metadata map[string]interface{}
	Distance *float64
}

// AsResult renders the hit in the wire shape of vector-sourced results.
func (h VectorHit) AsResult() map[string]interface{} {
	var distance interface{}
	if h.Distance != nil {
		distance = *h.Distance
	}
	return map[string]interface{}{
		"id":       h.ID,
		"document": h.Document,
		"metadata": h.Metadata,
		"distance": distance,
	}
}

// VectorSearcher queries an embedding-indexed collection.
type VectorSearcher interface {
	// Query returns the k nearest documents for the query text. Unavailability
	// is reported as an error wrapping ErrVectorStoreUnavailable.
	Query(ctx context.Context, query string, k int) ([]VectorHit, error)
}

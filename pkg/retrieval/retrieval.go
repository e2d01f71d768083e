// Package retrieval composes semantic and exact catalog search into one
// stable result contract. Backend failures degrade the result, they never
// propagate to the caller.
package retrieval

import (
	"context"
	"strings"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
)

// Sources a result can come from. "orm" is the historical wire value for the
// exact catalog backend and is part of the public contract.
const (
	SourceVector = "vector"
	SourceORM    = "orm"
)

// DefaultK is the effective result count when the caller's k is unusable.
const DefaultK = 5

// Result is the uniform retrieval outcome. Degraded=true signals that the
// semantic relevance guarantees of the vector path do not apply.
type Result struct {
	Query    string                   `json:"query"`
	K        int                      `json:"k"`
	Source   string                   `json:"source"`
	Degraded bool                     `json:"degraded"`
	Results  []map[string]interface{} `json:"results"`
	Warnings []string                 `json:"warnings"`
}

// Engine routes queries to the vector backend with exact-search fallback.
type Engine struct {
	vector  interfaces.VectorSearcher
	catalog interfaces.Catalog
	logger  logging.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine. vector may be nil when no semantic backend is
// deployed; every preferVector search then degrades to the catalog.
func New(vector interfaces.VectorSearcher, catalog interfaces.Catalog, options ...Option) *Engine {
	e := &Engine{
		vector:  vector,
		catalog: catalog,
		logger:  logging.New(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// NormalizeK coerces k to a usable value, appending a warning when it had to.
func NormalizeK(k int, warnings []string) (int, []string) {
	if k <= 0 {
		return DefaultK, append(warnings, "Non-positive 'k' value; defaulted to 5")
	}
	return k, warnings
}

// Search runs the dual-mode lookup. It never returns an error: failures are
// recorded in Warnings and reflected in Source/Degraded.
func (e *Engine) Search(ctx context.Context, query string, k int, preferVector bool) Result {
	cleaned := strings.TrimSpace(query)
	warnings := []string{}
	k, warnings = NormalizeK(k, warnings)

	if cleaned == "" {
		source := SourceVector
		if !preferVector {
			source = SourceORM
		}
		// The empty-query short circuit reports only its own warning,
		// even when k also had to be normalized.
		return Result{
			Query:    "",
			K:        k,
			Source:   source,
			Degraded: true,
			Results:  []map[string]interface{}{},
			Warnings: []string{"Empty query"},
		}
	}

	if preferVector && e.vector != nil {
		hits, err := e.vector.Query(ctx, cleaned, k)
		if err == nil {
			results := make([]map[string]interface{}, 0, len(hits))
			for _, hit := range hits {
				results = append(results, hit.AsResult())
			}
			return Result{
				Query:    cleaned,
				K:        k,
				Source:   SourceVector,
				Degraded: false,
				Results:  results,
				Warnings: warnings,
			}
		}
		warnings = append(warnings, err.Error())
		e.logger.Warn(ctx, "Vector search failed, falling back to catalog", map[string]interface{}{
			"query": cleaned,
			"error": err.Error(),
		})
	}

	books, err := e.catalog.SearchText(ctx, cleaned, k)
	if err != nil {
		warnings = append(warnings, "Catalog search failed: "+err.Error())
		e.logger.Error(ctx, "Catalog search failed", map[string]interface{}{
			"query": cleaned,
			"error": err.Error(),
		})
		return Result{
			Query:    cleaned,
			K:        k,
			Source:   SourceORM,
			Degraded: true,
			Results:  []map[string]interface{}{},
			Warnings: warnings,
		}
	}

	results := make([]map[string]interface{}, 0, len(books))
	for _, book := range books {
		results = append(results, book.AsResult())
	}
	return Result{
		Query:    cleaned,
		K:        k,
		Source:   SourceORM,
		Degraded: true,
		Results:  results,
		Warnings: warnings,
	}
}

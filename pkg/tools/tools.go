// Package tools exposes the catalog and commerce operations the agent can
// invoke. Every tool returns a uniform ToolResult and never panics or
// propagates errors: internal failures are converted to ok=false with a
// stable error code.
package tools

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
	"github.com/libreria-aurora/aurora-agent/pkg/retrieval"
)

// Tool names, used for routing decisions and traces.
const (
	NameSearchCatalog    = "search_catalog"
	NameLookupBook       = "lookup_book"
	NameFilterCatalog    = "filter_catalog"
	NameRecommendSimilar = "recommend_similar"
	NameAddToCart        = "add_to_cart"
	NameReserveBook      = "reserve_book"
	NameOrderStatus      = "order_status"
)

// Stable error codes.
const (
	ErrCodeMissingIdentifier      = "missing_identifier"
	ErrCodeNotFound               = "not_found"
	ErrCodePersistenceUnavailable = "persistence_unavailable"
	ErrCodeUserNotFound           = "user_not_found"
	ErrCodeBookNotFound           = "book_not_found"
	ErrCodeOrderNotFound          = "order_not_found"
	ErrCodeInsufficientStock      = "insufficient_stock"
	ErrCodeReservationFailed      = "reservation_failed"
)

// Quantity bounds for mutating tools.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// ToolResult is the uniform result-or-error envelope. Error is non-empty iff
// OK is false; Data may still carry partial info (e.g. empty results) then.
type ToolResult struct {
	OK       bool                   `json:"ok"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Warnings []string               `json:"warnings"`
}

func failure(code string, data map[string]interface{}, warnings []string) ToolResult {
	if warnings == nil {
		warnings = []string{}
	}
	return ToolResult{OK: false, Data: data, Error: code, Warnings: warnings}
}

func success(data map[string]interface{}, warnings []string) ToolResult {
	if warnings == nil {
		warnings = []string{}
	}
	return ToolResult{OK: true, Data: data, Warnings: warnings}
}

// Searcher is the retrieval dependency of the read-only tools.
type Searcher interface {
	Search(ctx context.Context, query string, k int, preferVector bool) retrieval.Result
}

// Toolset bundles the tools over their collaborators.
type Toolset struct {
	catalog  interfaces.Catalog
	commerce interfaces.Commerce
	search   Searcher
	logger   logging.Logger
}

// Option configures the toolset.
type Option func(*Toolset)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(t *Toolset) {
		t.logger = logger
	}
}

// New creates a toolset. commerce may be nil in read-only deployments; the
// mutating tools then report persistence_unavailable.
func New(catalog interfaces.Catalog, commerce interfaces.Commerce, search Searcher, options ...Option) *Toolset {
	t := &Toolset{
		catalog:  catalog,
		commerce: commerce,
		search:   search,
		logger:   logging.New(),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// SearchCatalog wraps generic retrieval in the tool envelope.
func (t *Toolset) SearchCatalog(ctx context.Context, query string, k int, preferVector bool) ToolResult {
	result := t.search.Search(ctx, query, k, preferVector)
	return success(map[string]interface{}{
		"query":    result.Query,
		"k":        result.K,
		"source":   result.Source,
		"degraded": result.Degraded,
		"results":  result.Results,
		"warnings": result.Warnings,
	}, result.Warnings)
}

var isbnJunk = regexp.MustCompile(`[^0-9Xx]`)

// NormalizeISBN strips separators and noise from an ISBN candidate.
func NormalizeISBN(isbn string) string {
	return isbnJunk.ReplaceAllString(isbn, "")
}

// LookupBook finds a single book by id or ISBN. At least one identifier is
// required; the first match wins.
func (t *Toolset) LookupBook(ctx context.Context, bookID *int64, isbn string) ToolResult {
	warnings := []string{}
	isbn = strings.TrimSpace(isbn)

	if bookID == nil && isbn == "" {
		return failure(ErrCodeMissingIdentifier, nil, []string{"book_id or isbn required"})
	}

	var book *interfaces.Book
	var err error
	switch {
	case bookID != nil:
		book, err = t.catalog.FindByID(ctx, *bookID)
	default:
		cleaned := NormalizeISBN(isbn)
		if cleaned == "" {
			warnings = append(warnings, "Invalid ISBN format")
			return failure(ErrCodeNotFound, map[string]interface{}{"results": []map[string]interface{}{}}, warnings)
		}
		book, err = t.catalog.FindByISBN(ctx, cleaned)
	}

	switch {
	case err == nil:
		return success(map[string]interface{}{
			"results": []map[string]interface{}{book.AsResult()},
		}, warnings)
	case errors.Is(err, interfaces.ErrNotFound):
		return failure(ErrCodeNotFound, map[string]interface{}{"results": []map[string]interface{}{}}, warnings)
	default:
		return failure(ErrCodePersistenceUnavailable, nil, append(warnings, err.Error()))
	}
}

// FilterCatalog builds a conjunctive query from whichever recognized filter
// keys are present. Unrecognized keys are ignored; unparseable numeric
// filters are dropped with a warning.
func (t *Toolset) FilterCatalog(ctx context.Context, filters map[string]interface{}, k int) ToolResult {
	warnings := []string{}
	k, warnings = retrieval.NormalizeK(k, warnings)

	filter := interfaces.BookFilter{}
	if categoria, ok := stringValue(filters["categoria"]); ok {
		filter.Categoria = categoria
	}
	if autor, ok := stringValue(filters["autor"]); ok {
		filter.Autor = autor
	}
	if editorial, ok := stringValue(filters["editorial"]); ok {
		filter.Editorial = editorial
	}
	if raw, present := filters["disponible"]; present {
		if disponible, ok := raw.(bool); ok {
			filter.Disponible = &disponible
		}
	}
	if raw, present := filters["precio_min"]; present {
		if value, ok := floatValue(raw); ok {
			filter.PrecioMin = &value
		} else {
			warnings = append(warnings, "Invalid precio_min")
		}
	}
	if raw, present := filters["precio_max"]; present {
		if value, ok := floatValue(raw); ok {
			filter.PrecioMax = &value
		} else {
			warnings = append(warnings, "Invalid precio_max")
		}
	}
	if texto, ok := stringValue(filters["q"]); ok {
		filter.Texto = texto
	}

	books, err := t.catalog.Filter(ctx, filter, k)
	if err != nil {
		return failure(ErrCodePersistenceUnavailable, nil, append(warnings, err.Error()))
	}

	results := make([]map[string]interface{}, 0, len(books))
	for _, book := range books {
		results = append(results, book.AsResult())
	}
	return success(map[string]interface{}{
		"results":  results,
		"warnings": warnings,
	}, warnings)
}

// RecommendSimilar searches with a synthetic query built from the base book
// and excludes the base book itself from the results.
func (t *Toolset) RecommendSimilar(ctx context.Context, bookID int64, k int) ToolResult {
	warnings := []string{}
	k, warnings = retrieval.NormalizeK(k, warnings)

	lookup := t.LookupBook(ctx, &bookID, "")
	if !lookup.OK {
		return failure(lookup.Error, map[string]interface{}{"results": []map[string]interface{}{}}, lookup.Warnings)
	}
	baseResults, _ := lookup.Data["results"].([]map[string]interface{})
	if len(baseResults) == 0 {
		return failure(ErrCodeNotFound, map[string]interface{}{"results": []map[string]interface{}{}}, lookup.Warnings)
	}
	base := baseResults[0]

	query := strings.TrimSpace(strings.Join([]string{
		stringOrEmpty(base["titulo"]),
		stringOrEmpty(base["autor"]),
		stringOrEmpty(base["categoria"]),
		stringOrEmpty(base["editorial"]),
		stringOrEmpty(base["descripcion"]),
	}, " "))

	result := t.search.Search(ctx, query, k+1, true)

	filtered := make([]map[string]interface{}, 0, k)
	for _, item := range result.Results {
		if id, ok := resultLibroID(item); ok && id == bookID {
			continue
		}
		filtered = append(filtered, item)
		if len(filtered) >= k {
			break
		}
	}

	return success(map[string]interface{}{
		"query":    result.Query,
		"k":        k,
		"source":   result.Source,
		"degraded": result.Degraded,
		"results":  filtered,
		"warnings": result.Warnings,
	}, append(warnings, result.Warnings...))
}

// ClampQuantity forces quantity into [MinQuantity, MaxQuantity], warning on
// out-of-range input.
func ClampQuantity(quantity int, warnings []string) (int, []string) {
	if quantity < MinQuantity {
		return MinQuantity, append(warnings, "Quantity below minimum; clamped to 1")
	}
	if quantity > MaxQuantity {
		return MaxQuantity, append(warnings, "Quantity above maximum; clamped to 10")
	}
	return quantity, warnings
}

func (t *Toolset) mutate(ctx context.Context, invoke func(ctx context.Context) (map[string]interface{}, error), warnings []string) ToolResult {
	if t.commerce == nil {
		return failure(ErrCodePersistenceUnavailable, nil, append(warnings, "commerce backend not configured"))
	}
	payload, err := invoke(ctx)
	if err == nil {
		return success(map[string]interface{}{"result": payload}, warnings)
	}

	switch {
	case errors.Is(err, interfaces.ErrUserNotFound):
		return failure(ErrCodeUserNotFound, nil, warnings)
	case errors.Is(err, interfaces.ErrBookNotFound):
		return failure(ErrCodeBookNotFound, nil, warnings)
	case errors.Is(err, interfaces.ErrOrderNotFound):
		return failure(ErrCodeOrderNotFound, nil, warnings)
	case errors.Is(err, interfaces.ErrInsufficientStock):
		return failure(ErrCodeInsufficientStock, nil, warnings)
	case errors.Is(err, interfaces.ErrReservationFailed):
		return failure(ErrCodeReservationFailed, nil, warnings)
	default:
		t.logger.Error(ctx, "Commerce backend failed", map[string]interface{}{
			"error": err.Error(),
		})
		return failure(ErrCodePersistenceUnavailable, nil, append(warnings, err.Error()))
	}
}

// AddToCart puts a book into the user's cart.
func (t *Toolset) AddToCart(ctx context.Context, userID, bookID int64, quantity int) ToolResult {
	quantity, warnings := ClampQuantity(quantity, []string{})
	return t.mutate(ctx, func(ctx context.Context) (map[string]interface{}, error) {
		return t.commerce.AddToCart(ctx, userID, bookID, quantity)
	}, warnings)
}

// ReserveBook places a stock reservation.
func (t *Toolset) ReserveBook(ctx context.Context, userID, bookID int64, quantity int) ToolResult {
	quantity, warnings := ClampQuantity(quantity, []string{})
	return t.mutate(ctx, func(ctx context.Context) (map[string]interface{}, error) {
		return t.commerce.Reserve(ctx, userID, bookID, quantity)
	}, warnings)
}

// OrderStatus reports the state of one of the user's orders.
func (t *Toolset) OrderStatus(ctx context.Context, userID, orderID int64) ToolResult {
	return t.mutate(ctx, func(ctx context.Context) (map[string]interface{}, error) {
		return t.commerce.OrderStatus(ctx, userID, orderID)
	}, []string{})
}

func stringValue(raw interface{}) (string, bool) {
	s, ok := raw.(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func stringOrEmpty(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return ""
}

func floatValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

// resultLibroID extracts the catalog id from a result item, looking at the
// top-level libro_id (catalog results) or metadata.libro_id (vector hits).
func resultLibroID(item map[string]interface{}) (int64, bool) {
	if id, ok := intValue(item["libro_id"]); ok {
		return id, true
	}
	if metadata, ok := item["metadata"].(map[string]interface{}); ok {
		return intValue(metadata["libro_id"])
	}
	return 0, false
}

func intValue(raw interface{}) (int64, bool) {
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

package interfaces

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by the catalog and commerce collaborators. The tool
// layer maps these to its stable error codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrStoreUnavailable   = errors.New("persistence layer unavailable")
	ErrUserNotFound       = errors.New("user not found")
	ErrBookNotFound       = errors.New("book not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrReservationFailed  = errors.New("reservation failed")
)

// Book is one catalog record. Precio travels as a string to preserve the
// decimal representation of the persistence layer.
type Book struct {
	ID              int64
	Titulo          string
	Autor           string
	ISBN            string
	Precio          string
	Categoria       string
	Stock           int
	Editorial       string
	AnioPublicacion int
	Descripcion     string
}

// AsResult renders the book in the wire shape shared by search results and
// tool payloads.
func (b Book) AsResult() map[string]interface{} {
	var precio interface{}
	if b.Precio != "" {
		precio = b.Precio
	}
	return map[string]interface{}{
		"libro_id":         b.ID,
		"titulo":           b.Titulo,
		"autor":            b.Autor,
		"isbn":             b.ISBN,
		"precio":           precio,
		"categoria":        b.Categoria,
		"stock":            b.Stock,
		"editorial":        b.Editorial,
		"anio_publicacion": b.AnioPublicacion,
		"descripcion":      b.Descripcion,
	}
}

// BookFilter is a conjunctive catalog filter. Zero values mean "not set".
type BookFilter struct {
	Categoria  string
	Autor      string
	Editorial  string
	Disponible *bool
	PrecioMin  *float64
	PrecioMax  *float64
	Texto      string
}

// Catalog is the read side of the book catalog.
type Catalog interface {
	// FindByID returns the book with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*Book, error)

	// FindByISBN returns the first book matching the normalized ISBN, or ErrNotFound.
	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	// SearchText runs a substring search over titulo/autor/isbn/descripcion/editorial,
	// ordered by titulo, returning at most k books.
	SearchText(ctx context.Context, query string, k int) ([]Book, error)

	// Filter applies a conjunctive filter, returning at most k books.
	Filter(ctx context.Context, filter BookFilter, k int) ([]Book, error)
}

// Package postgres implements the book catalog over PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type bookRow struct {
	ID              int64   `db:"id"`
	Titulo          string  `db:"titulo"`
	Autor           string  `db:"autor"`
	ISBN            string  `db:"isbn"`
	Precio          *string `db:"precio"`
	Categoria       *string `db:"categoria"`
	Stock           int     `db:"stock"`
	Editorial       *string `db:"editorial"`
	AnioPublicacion *int    `db:"anio_publicacion"`
	Descripcion     *string `db:"descripcion"`
}

func (r bookRow) toBook() interfaces.Book {
	book := interfaces.Book{
		ID:     r.ID,
		Titulo: r.Titulo,
		Autor:  r.Autor,
		ISBN:   r.ISBN,
		Stock:  r.Stock,
	}
	if r.Precio != nil {
		book.Precio = *r.Precio
	}
	if r.Categoria != nil {
		book.Categoria = *r.Categoria
	}
	if r.Editorial != nil {
		book.Editorial = *r.Editorial
	}
	if r.AnioPublicacion != nil {
		book.AnioPublicacion = *r.AnioPublicacion
	}
	if r.Descripcion != nil {
		book.Descripcion = *r.Descripcion
	}
	return book
}

// Store implements interfaces.Catalog over a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a catalog store over the given pool.
func New(pool *pgxpool.Pool, options ...Option) *Store {
	s := &Store{pool: pool, logger: logging.New()}
	for _, option := range options {
		option(s)
	}
	return s
}

func selectBooks() sq.SelectBuilder {
	return builder.
		Select(
			"l.id", "l.titulo", "l.autor", "l.isbn", "l.precio",
			"c.nombre AS categoria", "l.stock", "l.editorial",
			"l.anio_publicacion", "l.descripcion",
		).
		From("libros l").
		LeftJoin("categorias c ON c.id = l.categoria_id")
}

func (s *Store) getOne(ctx context.Context, query sq.SelectBuilder) (*interfaces.Book, error) {
	sql, args, err := query.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row bookRow
	if err := pgxscan.Get(ctx, s.pool, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	book := row.toBook()
	return &book, nil
}

func (s *Store) selectMany(ctx context.Context, query sq.SelectBuilder, k int) ([]interfaces.Book, error) {
	if k > 0 {
		query = query.Limit(uint64(k))
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []bookRow
	if err := pgxscan.Select(ctx, s.pool, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	books := make([]interfaces.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.toBook())
	}
	return books, nil
}

// FindByID implements interfaces.Catalog.
func (s *Store) FindByID(ctx context.Context, id int64) (*interfaces.Book, error) {
	return s.getOne(ctx, selectBooks().Where(sq.Eq{"l.id": id}))
}

// FindByISBN implements interfaces.Catalog.
func (s *Store) FindByISBN(ctx context.Context, isbn string) (*interfaces.Book, error) {
	return s.getOne(ctx, selectBooks().Where(sq.Eq{"l.isbn": isbn}))
}

// SearchText implements interfaces.Catalog: case-insensitive substring match
// over titulo, autor, isbn, descripcion and editorial, ordered by titulo.
func (s *Store) SearchText(ctx context.Context, query string, k int) ([]interfaces.Book, error) {
	pattern := "%" + escapeLike(query) + "%"
	q := selectBooks().
		Where(sq.Or{
			sq.ILike{"l.titulo": pattern},
			sq.ILike{"l.autor": pattern},
			sq.ILike{"l.isbn": pattern},
			sq.ILike{"l.descripcion": pattern},
			sq.ILike{"l.editorial": pattern},
		}).
		OrderBy("l.titulo")
	return s.selectMany(ctx, q, k)
}

// Filter implements interfaces.Catalog. Conditions are conjunctive; unset
// fields are skipped.
func (s *Store) Filter(ctx context.Context, filter interfaces.BookFilter, k int) ([]interfaces.Book, error) {
	q := selectBooks().OrderBy("l.titulo")

	if filter.Categoria != "" {
		q = q.Where(sq.ILike{"c.nombre": "%" + escapeLike(filter.Categoria) + "%"})
	}
	if filter.Autor != "" {
		q = q.Where(sq.ILike{"l.autor": "%" + escapeLike(filter.Autor) + "%"})
	}
	if filter.Editorial != "" {
		q = q.Where(sq.ILike{"l.editorial": "%" + escapeLike(filter.Editorial) + "%"})
	}
	if filter.Disponible != nil {
		if *filter.Disponible {
			q = q.Where(sq.Gt{"l.stock": 0})
		} else {
			q = q.Where(sq.LtOrEq{"l.stock": 0})
		}
	}
	if filter.PrecioMin != nil {
		q = q.Where(sq.GtOrEq{"l.precio": *filter.PrecioMin})
	}
	if filter.PrecioMax != nil {
		q = q.Where(sq.LtOrEq{"l.precio": *filter.PrecioMax})
	}
	if filter.Texto != "" {
		pattern := "%" + escapeLike(filter.Texto) + "%"
		q = q.Where(sq.Or{
			sq.ILike{"l.titulo": pattern},
			sq.ILike{"l.autor": pattern},
			sq.ILike{"l.isbn": pattern},
			sq.ILike{"l.descripcion": pattern},
			sq.ILike{"l.editorial": pattern},
		})
	}

	return s.selectMany(ctx, q, k)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

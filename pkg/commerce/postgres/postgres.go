// Package postgres implements the mutating commerce boundary (carrito,
// reservas, pedidos) over PostgreSQL. Stock and reservation limits are
// enforced here, inside a transaction, and violations surface as the
// sentinel errors from pkg/interfaces.
package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/libreria-aurora/aurora-agent/pkg/interfaces"
	"github.com/libreria-aurora/aurora-agent/pkg/logging"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// maxActiveReservations bounds open reservations per user.
const maxActiveReservations = 5

// Store implements interfaces.Commerce over a pgx connection pool.
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

// New creates a commerce store over the given pool.
func New(pool *pgxpool.Pool, options ...Option) *Store {
	s := &Store{pool: pool, logger: logging.New()}
	for _, option := range options {
		option(s)
	}
	return s
}

func wrapStoreErr(err error) error {
	return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
}

func (s *Store) userExists(ctx context.Context, tx pgx.Tx, userID int64) error {
	var exists bool
	err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM usuarios WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !exists {
		return interfaces.ErrUserNotFound
	}
	return nil
}

type bookLine struct {
	ID     int64   `db:"id"`
	Titulo string  `db:"titulo"`
	Precio *string `db:"precio"`
	Stock  int     `db:"stock"`
}

func (s *Store) lockBook(ctx context.Context, tx pgx.Tx, bookID int64) (*bookLine, error) {
	sql, args, err := builder.
		Select("id", "titulo", "precio", "stock").
		From("libros").
		Where(sq.Eq{"id": bookID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var line bookLine
	if err := pgxscan.Get(ctx, tx, &line, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, interfaces.ErrBookNotFound
		}
		return nil, wrapStoreErr(err)
	}
	return &line, nil
}

func bookPayload(line *bookLine) map[string]interface{} {
	var precio interface{}
	if line.Precio != nil {
		precio = *line.Precio
	}
	return map[string]interface{}{
		"libro_id": line.ID,
		"titulo":   line.Titulo,
		"precio":   precio,
		"stock":    line.Stock,
	}
}

// AddToCart implements interfaces.Commerce.
func (s *Store) AddToCart(ctx context.Context, userID, bookID int64, quantity int) (map[string]interface{}, error) {
	var payload map[string]interface{}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.userExists(ctx, tx, userID); err != nil {
			return err
		}
		line, err := s.lockBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if line.Stock < quantity {
			return interfaces.ErrInsufficientStock
		}

		var total int
		err = tx.QueryRow(ctx, `
			INSERT INTO carrito_items (usuario_id, libro_id, cantidad)
			VALUES ($1, $2, $3)
			ON CONFLICT (usuario_id, libro_id)
			DO UPDATE SET cantidad = carrito_items.cantidad + EXCLUDED.cantidad
			RETURNING cantidad`,
			userID, bookID, quantity,
		).Scan(&total)
		if err != nil {
			return wrapStoreErr(err)
		}

		payload = map[string]interface{}{
			"libro":    bookPayload(line),
			"cantidad": total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Reserve implements interfaces.Commerce.
func (s *Store) Reserve(ctx context.Context, userID, bookID int64, quantity int) (map[string]interface{}, error) {
	var payload map[string]interface{}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.userExists(ctx, tx, userID); err != nil {
			return err
		}
		line, err := s.lockBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if line.Stock < quantity {
			return interfaces.ErrInsufficientStock
		}

		var active int
		err = tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM reservas WHERE usuario_id = $1 AND estado = 'activa'",
			userID,
		).Scan(&active)
		if err != nil {
			return wrapStoreErr(err)
		}
		if active >= maxActiveReservations {
			return interfaces.ErrReservationFailed
		}

		var reservaID int64
		expiresAt := time.Now().Add(48 * time.Hour)
		err = tx.QueryRow(ctx, `
			INSERT INTO reservas (usuario_id, libro_id, cantidad, estado, expira)
			VALUES ($1, $2, $3, 'activa', $4)
			RETURNING id`,
			userID, bookID, quantity, expiresAt,
		).Scan(&reservaID)
		if err != nil {
			return wrapStoreErr(err)
		}

		_, err = tx.Exec(ctx, "UPDATE libros SET stock = stock - $1 WHERE id = $2", quantity, bookID)
		if err != nil {
			return wrapStoreErr(err)
		}

		payload = map[string]interface{}{
			"reserva_id": reservaID,
			"libro":      bookPayload(line),
			"cantidad":   quantity,
			"estado":     "activa",
			"expira":     expiresAt.UTC().Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

type orderRow struct {
	ID     int64     `db:"id"`
	Estado string    `db:"estado"`
	Total  *string   `db:"total"`
	Fecha  time.Time `db:"fecha"`
}

// OrderStatus implements interfaces.Commerce.
func (s *Store) OrderStatus(ctx context.Context, userID, orderID int64) (map[string]interface{}, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM usuarios WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if !exists {
		return nil, interfaces.ErrUserNotFound
	}

	sql, args, err := builder.
		Select("id", "estado", "total", "fecha").
		From("pedidos").
		Where(sq.Eq{"id": orderID, "usuario_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row orderRow
	if err := pgxscan.Get(ctx, s.pool, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, interfaces.ErrOrderNotFound
		}
		return nil, wrapStoreErr(err)
	}

	var total interface{}
	if row.Total != nil {
		total = *row.Total
	}
	return map[string]interface{}{
		"pedido_id": row.ID,
		"estado":    row.Estado,
		"total":     total,
		"fecha":     row.Fecha.UTC().Format(time.RFC3339),
	}, nil
}

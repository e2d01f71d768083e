package interfaces

import "context"

// Commerce is the mutating boundary to the e-commerce domain (cart, reserva,
// pedidos). Stock and reservation limits are enforced behind this interface;
// violations surface as the sentinel errors in this package.
type Commerce interface {
	// AddToCart puts quantity units of a book into the user's cart and returns
	// the resulting cart line.
	AddToCart(ctx context.Context, userID, bookID int64, quantity int) (map[string]interface{}, error)

	// Reserve places a stock reservation for the user.
	Reserve(ctx context.Context, userID, bookID int64, quantity int) (map[string]interface{}, error)

	// OrderStatus returns the state of one of the user's orders.
	OrderStatus(ctx context.Context, userID, orderID int64) (map[string]interface{}, error)
}

package services

import (
	"context"

	domain "github.com/g1food/api/internal/domain"
	"github.com/g1food/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Account     = domain.Account
	Product     = domain.Product
	CartLine    = domain.CartLine
	Buyer       = domain.Buyer
	Order       = domain.Order
	OrderLine   = domain.OrderLine
	OrderStatus = domain.OrderStatus
	Role        = domain.Role
)

// OrderListFilter narrows order listings.
type OrderListFilter = repositories.OrderListFilter

// CartService manages per-account cart state. A cart is the set of lines
// owned by one account; adding a product already in the cart increases the
// existing line's quantity.
type CartService interface {
	AddLine(ctx context.Context, cmd AddCartLineCommand) (CartLine, error)
	ListLines(ctx context.Context, accountID string) ([]CartLineView, error)
	RemoveLine(ctx context.Context, cmd RemoveCartLineCommand) error
	ClearAll(ctx context.Context, accountID string) error
}

// AddCartLineCommand adds quantity of a product to an account's cart.
type AddCartLineCommand struct {
	AccountID string
	ProductID string
	Quantity  int
}

// RemoveCartLineCommand removes one line from an account's cart.
type RemoveCartLineCommand struct {
	AccountID string
	LineID    string
}

// CartLineView is a cart line enriched with current catalogue data for
// display. Prices here are informational; checkout snapshots its own.
type CartLineView struct {
	CartLine
	ProductName string
	UnitPrice   int64
	SalePercent int
	ImageURL    string
}

// OrderService turns carts into orders and drives the fulfilment workflow.
type OrderService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (OrderDetail, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (OrderDetail, error)
	OrdersFor(ctx context.Context, accountID string) ([]Order, error)
	OrdersByChef(ctx context.Context, chefID string) ([]Order, error)
	OrdersByShipper(ctx context.Context, shipperID string) ([]Order, error)
	OrdersByStatus(ctx context.Context, status OrderStatus) ([]Order, error)
	CurrentDeliveryFor(ctx context.Context, shipperID string) (Order, bool, error)
}

// CheckoutCommand converts the account's whole cart into an order. Buyer
// fields override the account record when set.
type CheckoutCommand struct {
	AccountID string
	Note      string
	Buyer     Buyer
}

// UpdateOrderStatusCommand moves an order through the workflow on behalf of
// an actor whose role is derived from the actor identifier.
type UpdateOrderStatusCommand struct {
	OrderID string
	ActorID string
	Target  OrderStatus
}

// OrderDetail pairs an order with its line snapshots.
type OrderDetail struct {
	Order
	Lines []OrderLine
}

// IdentifierService allocates the human-readable sequential identifiers used
// across the platform.
type IdentifierService interface {
	NextOrderID(ctx context.Context) (string, error)
	NextOrderLineIDs(ctx context.Context, count int) ([]string, error)
	// NextOrderAndLineIDs allocates an order ID and a contiguous block of
	// line IDs in a single atomic step so checkout performs exactly one
	// sequence round-trip.
	NextOrderAndLineIDs(ctx context.Context, lineCount int) (string, []string, error)
	NextAccountID(ctx context.Context, role Role) (string, error)
	NextProductID(ctx context.Context, productName string) (string, error)
}

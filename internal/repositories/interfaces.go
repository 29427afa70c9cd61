package repositories

import (
	"context"

	domain "github.com/g1food/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	CartLines() CartLineRepository
	Orders() OrderRepository
	OrderLines() OrderLineRepository
	Sequences() SequenceRepository
	Accounts() AccountRepository
	Products() ProductRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CartLineRepository persists cart lines. Implementations must join an open
// transaction carried by the context so merge and checkout stay atomic.
type CartLineRepository interface {
	Upsert(ctx context.Context, line domain.CartLine) error
	FindByID(ctx context.Context, lineID string) (domain.CartLine, error)
	FindByAccountAndProduct(ctx context.Context, accountID, productID string) (domain.CartLine, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.CartLine, error)
	Delete(ctx context.Context, lineID string) error
	// DeleteMany removes the identified lines. Callers pass explicit IDs so
	// the deletes can run after reads inside a transaction.
	DeleteMany(ctx context.Context, lineIDs []string) error
}

// OrderListFilter narrows order listings. Zero-valued fields are ignored.
type OrderListFilter struct {
	AccountID string
	ChefID    string
	ShipperID string
	Status    domain.OrderStatus
	Limit     int
}

// OrderRepository persists orders. Orders are never deleted.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
}

// OrderLineRepository persists immutable order line snapshots.
type OrderLineRepository interface {
	Insert(ctx context.Context, line domain.OrderLine) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderLine, error)
}

// Sequence scopes. Staff and customer identifiers share one number space, as
// do all product prefixes.
const (
	SequenceScopeOrders     = "orders"
	SequenceScopeOrderLines = "order_lines"
	SequenceScopeAccounts   = "accounts"
	SequenceScopeProducts   = "products"
)

// SequenceRepository allocates monotonically increasing values per scope.
// Values are never reused, even when the caller's surrounding work fails
// after allocation.
type SequenceRepository interface {
	// AllocateBlock reserves count consecutive values in scope and returns
	// the first. An absent sequence starts at 1.
	AllocateBlock(ctx context.Context, scope string, count int) (int64, error)
	// AllocateMany reserves one block per scope atomically and returns the
	// first value of each block.
	AllocateMany(ctx context.Context, counts map[string]int) (map[string]int64, error)
}

// AccountRepository reads platform accounts. Account provisioning lives in a
// separate system; this service only resolves buyers and staff.
type AccountRepository interface {
	FindByID(ctx context.Context, accountID string) (domain.Account, error)
}

// ProductRepository reads the product catalogue.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

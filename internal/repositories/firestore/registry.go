package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/g1food/api/internal/platform/firestore"
	"github.com/g1food/api/internal/repositories"
)

// Registry bundles the Firestore repository implementations behind the
// repositories.Registry contract and owns the shared provider lifecycle.
type Registry struct {
	provider   *pfirestore.Provider
	cartLines  *CartLineRepository
	orders     *OrderRepository
	orderLines *OrderLineRepository
	sequences  *SequenceRepository
	accounts   *AccountRepository
	products   *ProductRepository
}

// NewRegistry wires all Firestore repositories on top of a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	cartLines, err := NewCartLineRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	orderLines, err := NewOrderLineRepository(provider)
	if err != nil {
		return nil, err
	}
	sequences, err := NewSequenceRepository(provider)
	if err != nil {
		return nil, err
	}
	accounts, err := NewAccountRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:   provider,
		cartLines:  cartLines,
		orders:     orders,
		orderLines: orderLines,
		sequences:  sequences,
		accounts:   accounts,
		products:   products,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// CartLines returns the cart line repository.
func (r *Registry) CartLines() repositories.CartLineRepository { return r.cartLines }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// OrderLines returns the order line repository.
func (r *Registry) OrderLines() repositories.OrderLineRepository { return r.orderLines }

// Sequences returns the sequence repository.
func (r *Registry) Sequences() repositories.SequenceRepository { return r.sequences }

// Accounts returns the account repository.
func (r *Registry) Accounts() repositories.AccountRepository { return r.accounts }

// Products returns the product repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// RunInTx executes fn inside one Firestore transaction. The transaction is
// carried on the context so repository calls made by fn join it.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	if _, ok := pfirestore.TransactionFrom(ctx); ok {
		// Already transactional; nesting joins the outer transaction.
		return fn(ctx)
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(pfirestore.WithTransaction(ctx, tx))
	})
}

var _ repositories.Registry = (*Registry)(nil)

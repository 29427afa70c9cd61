package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/g1food/api/internal/domain"
	pfirestore "github.com/g1food/api/internal/platform/firestore"
	"github.com/g1food/api/internal/repositories"
)

const orderLinesCollection = "order_lines"

type orderLineDocument struct {
	OrderID   string `firestore:"orderId"`
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice int64  `firestore:"unitPrice"`
}

// OrderLineRepository persists immutable order line snapshots in Firestore.
type OrderLineRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderLineDocument]
}

// NewOrderLineRepository constructs a Firestore-backed order line repository.
func NewOrderLineRepository(provider *pfirestore.Provider) (*OrderLineRepository, error) {
	if provider == nil {
		return nil, errors.New("order line repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderLineDocument](provider, orderLinesCollection, nil, nil)
	return &OrderLineRepository{
		provider: provider,
		base:     base,
	}, nil
}

// Insert creates the order line document, failing on an ID collision.
func (r *OrderLineRepository) Insert(ctx context.Context, line domain.OrderLine) error {
	if r == nil || r.base == nil {
		return errors.New("order line repository not initialised")
	}
	id := strings.TrimSpace(line.ID)
	if id == "" {
		return errors.New("order line repository: line id is required")
	}

	doc := orderLineDocument{
		OrderID:   strings.TrimSpace(line.OrderID),
		ProductID: strings.TrimSpace(line.ProductID),
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice,
	}

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		return pfirestore.WrapError("order_lines.create", tx.Create(ref, doc))
	}

	_, err := r.base.Create(ctx, id, doc)
	return err
}

// ListByOrder returns the lines of an order in identifier order, which is
// also allocation order.
func (r *OrderLineRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order line repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, errors.New("order line repository: order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(orderLinesCollection).Query.
		Where("orderId", "==", id).
		OrderBy(firestore.DocumentID, firestore.Asc)

	var iter *firestore.DocumentIterator
	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		iter = tx.Documents(query)
	} else {
		iter = query.Documents(ctx)
	}
	defer iter.Stop()

	var lines []domain.OrderLine
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("order_lines.list", err)
		}
		var doc orderLineDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("order_lines.decode", err)
		}
		lines = append(lines, domain.OrderLine{
			ID:        snapshot.Ref.ID,
			OrderID:   doc.OrderID,
			ProductID: doc.ProductID,
			Quantity:  doc.Quantity,
			UnitPrice: doc.UnitPrice,
		})
	}
	return lines, nil
}

var _ repositories.OrderLineRepository = (*OrderLineRepository)(nil)

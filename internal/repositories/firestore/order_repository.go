package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/g1food/api/internal/domain"
	pfirestore "github.com/g1food/api/internal/platform/firestore"
	"github.com/g1food/api/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	AccountID    string    `firestore:"accountId"`
	BuyerName    string    `firestore:"buyerName"`
	BuyerPhone   string    `firestore:"buyerPhone"`
	BuyerAddress string    `firestore:"buyerAddress"`
	Note         string    `firestore:"note,omitempty"`
	Status       string    `firestore:"status"`
	VoucherID    string    `firestore:"voucherId,omitempty"`
	SalePercent  int       `firestore:"salePercent"`
	ChefID       string    `firestore:"chefId,omitempty"`
	ShipperID    string    `firestore:"shipperId,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// OrderRepository persists orders in Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{
		provider: provider,
		base:     base,
	}, nil
}

// Insert creates the order document, failing on an ID collision.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}

	doc := orderToDocument(order)
	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		return pfirestore.WrapError("orders.create", tx.Create(ref, doc))
	}

	_, err := r.base.Create(ctx, id, doc)
	return err
}

// Update rewrites the order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}

	doc := orderToDocument(order)
	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		return pfirestore.WrapError("orders.set", tx.Set(ref, doc))
	}

	_, err := r.base.Set(ctx, id, doc)
	return err
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}
		snapshot, err := tx.Get(ref)
		if err != nil {
			return domain.Order{}, pfirestore.WrapError("orders.get", err)
		}
		var doc orderDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return domain.Order{}, pfirestore.WrapError("orders.decode", err)
		}
		return orderFromDocument(snapshot.Ref.ID, doc), nil
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromDocument(doc.ID, doc.Data), nil
}

// List returns orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(ordersCollection).Query
	if account := strings.TrimSpace(filter.AccountID); account != "" {
		query = query.Where("accountId", "==", account)
	}
	if chef := strings.TrimSpace(filter.ChefID); chef != "" {
		query = query.Where("chefId", "==", chef)
	}
	if shipper := strings.TrimSpace(filter.ShipperID); shipper != "" {
		query = query.Where("shipperId", "==", shipper)
	}
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}
	query = query.OrderBy("createdAt", firestore.Desc)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("orders.decode", err)
		}
		orders = append(orders, orderFromDocument(snapshot.Ref.ID, doc))
	}
	return orders, nil
}

func orderToDocument(order domain.Order) orderDocument {
	return orderDocument{
		AccountID:    strings.TrimSpace(order.AccountID),
		BuyerName:    strings.TrimSpace(order.Buyer.Name),
		BuyerPhone:   strings.TrimSpace(order.Buyer.Phone),
		BuyerAddress: strings.TrimSpace(order.Buyer.Address),
		Note:         strings.TrimSpace(order.Note),
		Status:       string(order.Status),
		VoucherID:    strings.TrimSpace(order.VoucherID),
		SalePercent:  order.SalePercent,
		ChefID:       strings.TrimSpace(order.ChefID),
		ShipperID:    strings.TrimSpace(order.ShipperID),
		CreatedAt:    order.CreatedAt.UTC(),
		UpdatedAt:    order.UpdatedAt.UTC(),
	}
}

func orderFromDocument(id string, doc orderDocument) domain.Order {
	return domain.Order{
		ID:        id,
		AccountID: doc.AccountID,
		Buyer: domain.Buyer{
			Name:    doc.BuyerName,
			Phone:   doc.BuyerPhone,
			Address: doc.BuyerAddress,
		},
		Note:        doc.Note,
		Status:      domain.OrderStatus(doc.Status),
		VoucherID:   doc.VoucherID,
		SalePercent: doc.SalePercent,
		ChefID:      doc.ChefID,
		ShipperID:   doc.ShipperID,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

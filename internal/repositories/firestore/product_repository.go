package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/g1food/api/internal/domain"
	pfirestore "github.com/g1food/api/internal/platform/firestore"
	"github.com/g1food/api/internal/repositories"
)

const productsCollection = "products"

type productDocument struct {
	Name        string    `firestore:"name"`
	Description string    `firestore:"description,omitempty"`
	Price       int64     `firestore:"price"`
	SalePercent int       `firestore:"salePercent"`
	ImageURL    string    `firestore:"imageUrl,omitempty"`
	Status      string    `firestore:"status"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// ProductRepository reads the product catalogue from Firestore.
type ProductRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed catalogue reader.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	return &ProductRepository{
		provider: provider,
		base:     base,
	}, nil
}

// FindByID loads a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return domain.Product{}, err
		}
		snapshot, err := tx.Get(ref)
		if err != nil {
			return domain.Product{}, pfirestore.WrapError("products.get", err)
		}
		var doc productDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return domain.Product{}, pfirestore.WrapError("products.decode", err)
		}
		return productFromDocument(snapshot.Ref.ID, doc), nil
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(doc.ID, doc.Data), nil
}

// FindByIDs batch-loads products keyed by ID. Absent products are simply
// missing from the result; callers decide whether that is an error.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("product repository not initialised")
	}

	unique := make(map[string]struct{}, len(productIDs))
	for _, productID := range productIDs {
		id := strings.TrimSpace(productID)
		if id == "" {
			return nil, errors.New("product repository: product id is required")
		}
		unique[id] = struct{}{}
	}
	if len(unique) == 0 {
		return map[string]domain.Product{}, nil
	}

	ids := make([]string, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	var snapshots []*firestore.DocumentSnapshot
	var err error
	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		snapshots, err = tx.GetAll(refs)
	} else {
		client, clientErr := r.provider.Client(ctx)
		if clientErr != nil {
			return nil, clientErr
		}
		snapshots, err = client.GetAll(ctx, refs)
	}
	if err != nil {
		return nil, pfirestore.WrapError("products.getall", err)
	}

	products := make(map[string]domain.Product, len(snapshots))
	for _, snapshot := range snapshots {
		if snapshot == nil || !snapshot.Exists() {
			continue
		}
		var doc productDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("products.decode", err)
		}
		products[snapshot.Ref.ID] = productFromDocument(snapshot.Ref.ID, doc)
	}
	return products, nil
}

func productFromDocument(id string, doc productDocument) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        doc.Name,
		Description: doc.Description,
		Price:       doc.Price,
		SalePercent: doc.SalePercent,
		ImageURL:    doc.ImageURL,
		Status:      domain.ProductStatus(doc.Status),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

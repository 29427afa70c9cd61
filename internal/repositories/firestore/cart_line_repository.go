package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/g1food/api/internal/domain"
	pfirestore "github.com/g1food/api/internal/platform/firestore"
	"github.com/g1food/api/internal/repositories"
)

const cartLinesCollection = "cart_lines"

type cartLineDocument struct {
	AccountID string    `firestore:"accountId"`
	ProductID string    `firestore:"productId"`
	Quantity  int       `firestore:"quantity"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// CartLineRepository persists cart lines in Firestore. All operations join
// an open transaction carried by the context when present.
type CartLineRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[cartLineDocument]
}

// NewCartLineRepository constructs a Firestore-backed cart line repository.
func NewCartLineRepository(provider *pfirestore.Provider) (*CartLineRepository, error) {
	if provider == nil {
		return nil, errors.New("cart line repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartLineDocument](provider, cartLinesCollection, nil, nil)
	return &CartLineRepository{
		provider: provider,
		base:     base,
	}, nil
}

// Upsert writes the cart line under its ID.
func (r *CartLineRepository) Upsert(ctx context.Context, line domain.CartLine) error {
	if r == nil || r.base == nil {
		return errors.New("cart line repository not initialised")
	}
	id := strings.TrimSpace(line.ID)
	if id == "" {
		return errors.New("cart line repository: line id is required")
	}

	doc := cartLineDocument{
		AccountID: strings.TrimSpace(line.AccountID),
		ProductID: strings.TrimSpace(line.ProductID),
		Quantity:  line.Quantity,
		CreatedAt: line.CreatedAt.UTC(),
		UpdatedAt: line.UpdatedAt.UTC(),
	}

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		return pfirestore.WrapError("cart_lines.set", tx.Set(ref, doc))
	}

	_, err := r.base.Set(ctx, id, doc)
	return err
}

// FindByID loads a single cart line.
func (r *CartLineRepository) FindByID(ctx context.Context, lineID string) (domain.CartLine, error) {
	if r == nil || r.base == nil {
		return domain.CartLine{}, errors.New("cart line repository not initialised")
	}
	id := strings.TrimSpace(lineID)
	if id == "" {
		return domain.CartLine{}, errors.New("cart line repository: line id is required")
	}

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, id)
		if err != nil {
			return domain.CartLine{}, err
		}
		snapshot, err := tx.Get(ref)
		if err != nil {
			return domain.CartLine{}, pfirestore.WrapError("cart_lines.get", err)
		}
		return decodeCartLine(snapshot)
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.CartLine{}, err
	}
	return cartLineFromDocument(doc.ID, doc.Data), nil
}

// FindByAccountAndProduct returns the line holding productID in the
// account's cart. A missing line surfaces as a not-found repository error.
func (r *CartLineRepository) FindByAccountAndProduct(ctx context.Context, accountID, productID string) (domain.CartLine, error) {
	account := strings.TrimSpace(accountID)
	product := strings.TrimSpace(productID)
	if account == "" || product == "" {
		return domain.CartLine{}, errors.New("cart line repository: account id and product id are required")
	}

	query, err := r.collectionQuery(ctx)
	if err != nil {
		return domain.CartLine{}, err
	}
	query = query.
		Where("accountId", "==", account).
		Where("productId", "==", product).
		Limit(1)

	lines, err := r.runQuery(ctx, "cart_lines.find", query)
	if err != nil {
		return domain.CartLine{}, err
	}
	if len(lines) == 0 {
		return domain.CartLine{}, pfirestore.WrapError("cart_lines.find",
			status.Errorf(codes.NotFound, "no cart line for account %s product %s", account, product))
	}
	return lines[0], nil
}

// ListByAccount returns every line in the account's cart, oldest first.
func (r *CartLineRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.CartLine, error) {
	account := strings.TrimSpace(accountID)
	if account == "" {
		return nil, errors.New("cart line repository: account id is required")
	}

	query, err := r.collectionQuery(ctx)
	if err != nil {
		return nil, err
	}
	query = query.
		Where("accountId", "==", account).
		OrderBy("createdAt", firestore.Asc)

	return r.runQuery(ctx, "cart_lines.list", query)
}

// Delete removes a single cart line.
func (r *CartLineRepository) Delete(ctx context.Context, lineID string) error {
	return r.DeleteMany(ctx, []string{lineID})
}

// DeleteMany removes the identified lines. IDs are explicit so the deletes
// can be issued after all transactional reads have completed.
func (r *CartLineRepository) DeleteMany(ctx context.Context, lineIDs []string) error {
	if r == nil || r.base == nil {
		return errors.New("cart line repository not initialised")
	}

	tx, inTx := pfirestore.TransactionFrom(ctx)
	for _, lineID := range lineIDs {
		id := strings.TrimSpace(lineID)
		if id == "" {
			return errors.New("cart line repository: line id is required")
		}
		if inTx {
			ref, err := r.base.DocumentRef(ctx, id)
			if err != nil {
				return err
			}
			if err := tx.Delete(ref); err != nil {
				return pfirestore.WrapError("cart_lines.delete", err)
			}
			continue
		}
		if err := r.base.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *CartLineRepository) collectionQuery(ctx context.Context) (firestore.Query, error) {
	if r == nil || r.provider == nil {
		return firestore.Query{}, errors.New("cart line repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return firestore.Query{}, err
	}
	return client.Collection(cartLinesCollection).Query, nil
}

func (r *CartLineRepository) runQuery(ctx context.Context, op string, query firestore.Query) ([]domain.CartLine, error) {
	var iter *firestore.DocumentIterator
	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		iter = tx.Documents(query)
	} else {
		iter = query.Documents(ctx)
	}
	defer iter.Stop()

	var lines []domain.CartLine
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError(op, err)
		}
		line, err := decodeCartLine(snapshot)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func decodeCartLine(snapshot *firestore.DocumentSnapshot) (domain.CartLine, error) {
	var doc cartLineDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return domain.CartLine{}, pfirestore.WrapError("cart_lines.decode", err)
	}
	return cartLineFromDocument(snapshot.Ref.ID, doc), nil
}

func cartLineFromDocument(id string, doc cartLineDocument) domain.CartLine {
	return domain.CartLine{
		ID:        id,
		AccountID: doc.AccountID,
		ProductID: doc.ProductID,
		Quantity:  doc.Quantity,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

var _ repositories.CartLineRepository = (*CartLineRepository)(nil)

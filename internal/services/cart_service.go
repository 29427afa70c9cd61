package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/g1food/api/internal/domain"
	"github.com/g1food/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: cart line repository is required")
	errCartProductsRequired   = errors.New("cart service: product repository is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartLineNotFound indicates the requested cart line does not exist for the account.
var ErrCartLineNotFound = errors.New("cart service: line not found")

// ErrCartProductNotFound indicates the referenced product is absent or retired.
var ErrCartProductNotFound = errors.New("cart service: product not found")

// ErrCartUnavailable indicates the cart service cannot reach its backend.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartConflict indicates concurrent cart updates exhausted retries.
var ErrCartConflict = errors.New("cart service: conflict")

// CartServiceDeps wires the repositories and utilities for cart operations.
type CartServiceDeps struct {
	CartLines   repositories.CartLineRepository
	Products    repositories.ProductRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type cartService struct {
	cartLines repositories.CartLineRepository
	products  repositories.ProductRepository
	uow       repositories.UnitOfWork
	now       func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.CartLines == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errCartProductsRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	uow := deps.UnitOfWork
	if uow == nil {
		uow = noopUnitOfWork{}
	}

	return &cartService{
		cartLines: deps.CartLines,
		products:  deps.Products,
		uow:       uow,
		now:       func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

// AddLine merges quantity into the account's existing line for the product or
// creates a new line. The read and the write share one transaction so
// concurrent adds cannot produce duplicate lines.
func (s *cartService) AddLine(ctx context.Context, cmd AddCartLineCommand) (CartLine, error) {
	if s == nil || s.cartLines == nil {
		return CartLine{}, ErrCartUnavailable
	}

	accountID := strings.TrimSpace(cmd.AccountID)
	productID := strings.TrimSpace(cmd.ProductID)
	if accountID == "" {
		return CartLine{}, fmt.Errorf("%w: account id is required", ErrCartInvalidInput)
	}
	if productID == "" {
		return CartLine{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return CartLine{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	var merged CartLine
	err := s.uow.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.products.FindByID(txCtx, productID)
		if err != nil {
			return s.mapRepositoryError(err, ErrCartProductNotFound)
		}
		if product.Status != domain.ProductStatusActive {
			return fmt.Errorf("%w: product %s is not purchasable", ErrCartProductNotFound, productID)
		}

		now := s.now()
		line, err := s.cartLines.FindByAccountAndProduct(txCtx, accountID, productID)
		switch {
		case err == nil:
			line.Quantity += cmd.Quantity
			line.UpdatedAt = now
		case isRepositoryNotFound(err):
			line = CartLine{
				ID:        s.newID(),
				AccountID: accountID,
				ProductID: productID,
				Quantity:  cmd.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			}
		default:
			return s.mapRepositoryError(err, ErrCartLineNotFound)
		}

		if err := s.cartLines.Upsert(txCtx, line); err != nil {
			return s.mapRepositoryError(err, ErrCartLineNotFound)
		}
		merged = line
		return nil
	})
	if err != nil {
		return CartLine{}, err
	}
	return merged, nil
}

// ListLines returns the account's cart lines enriched with current catalogue
// data. Lines referencing products that have since disappeared keep their
// stored fields and zero-valued enrichment.
func (s *cartService) ListLines(ctx context.Context, accountID string) ([]CartLineView, error) {
	if s == nil || s.cartLines == nil {
		return nil, ErrCartUnavailable
	}
	id := strings.TrimSpace(accountID)
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrCartInvalidInput)
	}

	lines, err := s.cartLines.ListByAccount(ctx, id)
	if err != nil {
		return nil, s.mapRepositoryError(err, ErrCartLineNotFound)
	}
	if len(lines) == 0 {
		return []CartLineView{}, nil
	}

	productIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, s.mapRepositoryError(err, ErrCartProductNotFound)
	}

	views := make([]CartLineView, 0, len(lines))
	for _, line := range lines {
		view := CartLineView{CartLine: line}
		if product, ok := products[line.ProductID]; ok {
			view.ProductName = product.Name
			view.UnitPrice = product.Price
			view.SalePercent = product.SalePercent
			view.ImageURL = product.ImageURL
		}
		views = append(views, view)
	}
	return views, nil
}

// RemoveLine deletes a single cart line. Lines owned by other accounts are
// reported as not found rather than forbidden.
func (s *cartService) RemoveLine(ctx context.Context, cmd RemoveCartLineCommand) error {
	if s == nil || s.cartLines == nil {
		return ErrCartUnavailable
	}
	accountID := strings.TrimSpace(cmd.AccountID)
	lineID := strings.TrimSpace(cmd.LineID)
	if accountID == "" {
		return fmt.Errorf("%w: account id is required", ErrCartInvalidInput)
	}
	if lineID == "" {
		return fmt.Errorf("%w: line id is required", ErrCartInvalidInput)
	}

	line, err := s.cartLines.FindByID(ctx, lineID)
	if err != nil {
		return s.mapRepositoryError(err, ErrCartLineNotFound)
	}
	if line.AccountID != accountID {
		return fmt.Errorf("%w: line %s", ErrCartLineNotFound, lineID)
	}

	if err := s.cartLines.Delete(ctx, lineID); err != nil {
		return s.mapRepositoryError(err, ErrCartLineNotFound)
	}
	return nil
}

// ClearAll removes every line in the account's cart in one transaction.
func (s *cartService) ClearAll(ctx context.Context, accountID string) error {
	if s == nil || s.cartLines == nil {
		return ErrCartUnavailable
	}
	id := strings.TrimSpace(accountID)
	if id == "" {
		return fmt.Errorf("%w: account id is required", ErrCartInvalidInput)
	}

	return s.uow.RunInTx(ctx, func(txCtx context.Context) error {
		lines, err := s.cartLines.ListByAccount(txCtx, id)
		if err != nil {
			return s.mapRepositoryError(err, ErrCartLineNotFound)
		}
		if len(lines) == 0 {
			return nil
		}
		lineIDs := make([]string, 0, len(lines))
		for _, line := range lines {
			lineIDs = append(lineIDs, line.ID)
		}
		if err := s.cartLines.DeleteMany(txCtx, lineIDs); err != nil {
			return s.mapRepositoryError(err, ErrCartLineNotFound)
		}
		return nil
	})
}

func (s *cartService) mapRepositoryError(err error, notFound error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCartConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
	}
	return err
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

var _ CartService = (*cartService)(nil)

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
	errOrderRepositoryRequired     = errors.New("order service: order repository is required")
	errOrderLineRepositoryRequired = errors.New("order service: order line repository is required")
	errOrderCartRepositoryRequired = errors.New("order service: cart line repository is required")
	errOrderAccountsRequired       = errors.New("order service: account repository is required")
	errOrderProductsRequired       = errors.New("order service: product repository is required")
	errOrderIdentifiersRequired    = errors.New("order service: identifier service is required")
)

// ErrOrderInvalidInput indicates the caller supplied invalid input.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderNotFound indicates the requested order does not exist.
var ErrOrderNotFound = errors.New("order service: not found")

// ErrEmptyCart indicates checkout was attempted with no cart lines.
var ErrEmptyCart = errors.New("order service: cart is empty")

// ErrInvalidTransition indicates the requested status change is not allowed
// from the order's current status.
var ErrInvalidTransition = errors.New("order service: invalid status transition")

// ErrRoleNotAllowed indicates the acting account may not perform the
// requested status change.
var ErrRoleNotAllowed = errors.New("order service: role not allowed")

// ErrCheckoutConflict indicates checkout lost the transactional race after
// exhausting retries. The cart is left untouched.
var ErrCheckoutConflict = errors.New("order service: checkout conflict")

// ErrOrderConflict indicates a concurrent update won the transactional race.
var ErrOrderConflict = errors.New("order service: conflict")

// ErrOrderUnavailable indicates the order service cannot reach its backend.
var ErrOrderUnavailable = errors.New("order service: unavailable")

// Order event types published after commit.
const (
	OrderEventTypeCreated       = "order.created"
	OrderEventTypeStatusChanged = "order.status.changed"
)

// OrderEventMessage describes an order lifecycle event for downstream
// consumers. PreviousStatus is empty for creation events.
type OrderEventMessage struct {
	EventID        string    `json:"eventId"`
	Type           string    `json:"type"`
	OrderID        string    `json:"orderId"`
	AccountID      string    `json:"accountId"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	ActorID        string    `json:"actorId,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// OrderEventPublisher delivers order lifecycle events. Publishing is best
// effort; failures are logged and never fail the triggering operation.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderServiceDeps wires repositories, identifier allocation and eventing
// into the order workflow.
type OrderServiceDeps struct {
	Orders           repositories.OrderRepository
	OrderLines       repositories.OrderLineRepository
	CartLines        repositories.CartLineRepository
	Accounts         repositories.AccountRepository
	Products         repositories.ProductRepository
	Identifiers      IdentifierService
	UnitOfWork       repositories.UnitOfWork
	Events           OrderEventPublisher
	Clock            func() time.Time
	IDGenerator      func() string
	Logger           func(context.Context, string, map[string]any)
	DefaultShipperID string
}

type orderService struct {
	orders           repositories.OrderRepository
	orderLines       repositories.OrderLineRepository
	cartLines        repositories.CartLineRepository
	accounts         repositories.AccountRepository
	products         repositories.ProductRepository
	identifiers      IdentifierService
	uow              repositories.UnitOfWork
	events           OrderEventPublisher
	now              func() time.Time
	newID            func() string
	logger           func(context.Context, string, map[string]any)
	defaultShipperID string
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errOrderRepositoryRequired
	}
	if deps.OrderLines == nil {
		return nil, errOrderLineRepositoryRequired
	}
	if deps.CartLines == nil {
		return nil, errOrderCartRepositoryRequired
	}
	if deps.Accounts == nil {
		return nil, errOrderAccountsRequired
	}
	if deps.Products == nil {
		return nil, errOrderProductsRequired
	}
	if deps.Identifiers == nil {
		return nil, errOrderIdentifiersRequired
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

	return &orderService{
		orders:           deps.Orders,
		orderLines:       deps.OrderLines,
		cartLines:        deps.CartLines,
		accounts:         deps.Accounts,
		products:         deps.Products,
		identifiers:      deps.Identifiers,
		uow:              uow,
		events:           deps.Events,
		now:              func() time.Time { return clock().UTC() },
		newID:            idGen,
		logger:           logger,
		defaultShipperID: strings.TrimSpace(deps.DefaultShipperID),
	}, nil
}

// Checkout converts the account's whole cart into an order in a single
// transaction: cart and catalogue reads, identifier allocation, order and
// line writes and the cart purge either all commit or none do.
func (s *orderService) Checkout(ctx context.Context, cmd CheckoutCommand) (OrderDetail, error) {
	if s == nil || s.orders == nil {
		return OrderDetail{}, ErrOrderUnavailable
	}
	accountID := strings.TrimSpace(cmd.AccountID)
	if accountID == "" {
		return OrderDetail{}, fmt.Errorf("%w: account id is required", ErrOrderInvalidInput)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if isRepositoryNotFound(err) {
			return OrderDetail{}, fmt.Errorf("%w: account %s", ErrOrderInvalidInput, accountID)
		}
		return OrderDetail{}, s.mapRepositoryError(err)
	}
	if account.Status != domain.AccountStatusActive {
		return OrderDetail{}, fmt.Errorf("%w: account %s is disabled", ErrOrderInvalidInput, accountID)
	}

	buyer := resolveBuyer(account, cmd.Buyer)
	if buyer.Address == "" {
		return OrderDetail{}, fmt.Errorf("%w: delivery address is required", ErrOrderInvalidInput)
	}

	var detail OrderDetail
	err = s.uow.RunInTx(ctx, func(txCtx context.Context) error {
		cartLines, err := s.cartLines.ListByAccount(txCtx, accountID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if len(cartLines) == 0 {
			return ErrEmptyCart
		}

		productIDs := make([]string, 0, len(cartLines))
		for _, line := range cartLines {
			productIDs = append(productIDs, line.ProductID)
		}
		products, err := s.products.FindByIDs(txCtx, productIDs)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		for _, line := range cartLines {
			if _, ok := products[line.ProductID]; !ok {
				return fmt.Errorf("%w: product %s is no longer available", ErrOrderInvalidInput, line.ProductID)
			}
		}

		// Sequence reads happen inside the allocation call, so it must run
		// before any write below.
		orderID, lineIDs, err := s.identifiers.NextOrderAndLineIDs(txCtx, len(cartLines))
		if err != nil {
			return err
		}

		now := s.now()
		order := Order{
			ID:        orderID,
			AccountID: accountID,
			Buyer:     buyer,
			Note:      strings.TrimSpace(cmd.Note),
			Status:    domain.OrderStatusProcessing,
			ShipperID: s.defaultShipperID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}

		lines := make([]OrderLine, 0, len(cartLines))
		for i, cartLine := range cartLines {
			line := OrderLine{
				ID:        lineIDs[i],
				OrderID:   orderID,
				ProductID: cartLine.ProductID,
				Quantity:  cartLine.Quantity,
				UnitPrice: products[cartLine.ProductID].Price,
			}
			if err := s.orderLines.Insert(txCtx, line); err != nil {
				return s.mapRepositoryError(err)
			}
			lines = append(lines, line)
		}

		cartLineIDs := make([]string, 0, len(cartLines))
		for _, cartLine := range cartLines {
			cartLineIDs = append(cartLineIDs, cartLine.ID)
		}
		if err := s.cartLines.DeleteMany(txCtx, cartLineIDs); err != nil {
			return s.mapRepositoryError(err)
		}

		detail = OrderDetail{Order: order, Lines: lines}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderConflict) {
			return OrderDetail{}, fmt.Errorf("%w: %v", ErrCheckoutConflict, err)
		}
		return OrderDetail{}, err
	}

	s.publishEvent(ctx, OrderEventMessage{
		Type:      OrderEventTypeCreated,
		OrderID:   detail.ID,
		AccountID: detail.AccountID,
		Status:    string(detail.Status),
		ActorID:   accountID,
	})
	return detail, nil
}

// UpdateStatus moves an order along the workflow. The transition table is
// checked before the actor's role so callers can distinguish an impossible
// move from a forbidden one.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderUnavailable
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if actorID == "" {
		return Order{}, fmt.Errorf("%w: actor id is required", ErrOrderInvalidInput)
	}
	target, ok := domain.ParseOrderStatus(string(cmd.Target))
	if !ok {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	var updated Order
	var previous OrderStatus
	err := s.uow.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orderID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if !domain.CanTransition(order.Status, target) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, target)
		}
		if err := applyActorForTransition(&order, target, actorID); err != nil {
			return err
		}

		previous = order.Status
		order.Status = target
		order.UpdatedAt = s.now()
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEventMessage{
		Type:           OrderEventTypeStatusChanged,
		OrderID:        updated.ID,
		AccountID:      updated.AccountID,
		Status:         string(updated.Status),
		PreviousStatus: string(previous),
		ActorID:        actorID,
	})
	return updated, nil
}

// GetOrder loads an order together with its line snapshots.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (OrderDetail, error) {
	if s == nil || s.orders == nil {
		return OrderDetail{}, ErrOrderUnavailable
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return OrderDetail{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return OrderDetail{}, s.mapRepositoryError(err)
	}
	lines, err := s.orderLines.ListByOrder(ctx, id)
	if err != nil {
		return OrderDetail{}, s.mapRepositoryError(err)
	}
	return OrderDetail{Order: order, Lines: lines}, nil
}

// OrdersFor lists the account's orders, newest first.
func (s *orderService) OrdersFor(ctx context.Context, accountID string) ([]Order, error) {
	return s.list(ctx, OrderListFilter{AccountID: strings.TrimSpace(accountID)}, "account id")
}

// OrdersByChef lists orders claimed by a chef.
func (s *orderService) OrdersByChef(ctx context.Context, chefID string) ([]Order, error) {
	return s.list(ctx, OrderListFilter{ChefID: strings.TrimSpace(chefID)}, "chef id")
}

// OrdersByShipper lists orders assigned to a shipper.
func (s *orderService) OrdersByShipper(ctx context.Context, shipperID string) ([]Order, error) {
	return s.list(ctx, OrderListFilter{ShipperID: strings.TrimSpace(shipperID)}, "shipper id")
}

// OrdersByStatus lists orders in one workflow status.
func (s *orderService) OrdersByStatus(ctx context.Context, status OrderStatus) ([]Order, error) {
	if s == nil || s.orders == nil {
		return nil, ErrOrderUnavailable
	}
	parsed, ok := domain.ParseOrderStatus(string(status))
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
	}
	orders, err := s.orders.List(ctx, OrderListFilter{Status: parsed})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

// CurrentDeliveryFor returns the order a shipper is currently delivering, if
// any. A shipper carries at most one order at a time.
func (s *orderService) CurrentDeliveryFor(ctx context.Context, shipperID string) (Order, bool, error) {
	if s == nil || s.orders == nil {
		return Order{}, false, ErrOrderUnavailable
	}
	id := strings.TrimSpace(shipperID)
	if id == "" {
		return Order{}, false, fmt.Errorf("%w: shipper id is required", ErrOrderInvalidInput)
	}

	orders, err := s.orders.List(ctx, OrderListFilter{
		ShipperID: id,
		Status:    domain.OrderStatusDelivering,
		Limit:     1,
	})
	if err != nil {
		return Order{}, false, s.mapRepositoryError(err)
	}
	if len(orders) == 0 {
		return Order{}, false, nil
	}
	return orders[0], true, nil
}

func (s *orderService) list(ctx context.Context, filter OrderListFilter, requiredField string) ([]Order, error) {
	if s == nil || s.orders == nil {
		return nil, ErrOrderUnavailable
	}
	if filter.AccountID == "" && filter.ChefID == "" && filter.ShipperID == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrOrderInvalidInput, requiredField)
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

// applyActorForTransition enforces who may drive each transition and stamps
// staff assignment. Assignments happen exactly once because the transition
// table never re-enters a status.
func applyActorForTransition(order *Order, target OrderStatus, actorID string) error {
	role := domain.RoleOf(actorID)
	switch target {
	case domain.OrderStatusCooking:
		if role != domain.RoleKitchen {
			return fmt.Errorf("%w: only kitchen staff may start cooking", ErrRoleNotAllowed)
		}
		order.ChefID = actorID
	case domain.OrderStatusDelivering:
		if role != domain.RoleDelivery {
			return fmt.Errorf("%w: only delivery staff may take orders out", ErrRoleNotAllowed)
		}
		order.ShipperID = actorID
	case domain.OrderStatusCompleted:
		if role != domain.RoleDelivery {
			return fmt.Errorf("%w: only delivery staff may complete orders", ErrRoleNotAllowed)
		}
		if order.ShipperID != actorID {
			return fmt.Errorf("%w: order is assigned to another shipper", ErrRoleNotAllowed)
		}
	case domain.OrderStatusCancelled:
		if actorID != order.AccountID && role != domain.RoleAdmin {
			return fmt.Errorf("%w: only the buyer or an admin may cancel", ErrRoleNotAllowed)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, target)
	}
	return nil
}

// resolveBuyer starts from the account record and applies per-order
// overrides field by field.
func resolveBuyer(account Account, override Buyer) Buyer {
	buyer := Buyer{
		Name:    strings.TrimSpace(account.Name),
		Phone:   strings.TrimSpace(account.Phone),
		Address: strings.TrimSpace(account.Address),
	}
	if name := strings.TrimSpace(override.Name); name != "" {
		buyer.Name = name
	}
	if phone := strings.TrimSpace(override.Phone); phone != "" {
		buyer.Phone = phone
	}
	if address := strings.TrimSpace(override.Address); address != "" {
		buyer.Address = address
	}
	return buyer
}

func (s *orderService) mapRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}

// publishEvent delivers a lifecycle event after a successful commit. Failures
// are logged, never surfaced.
func (s *orderService) publishEvent(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	message.EventID = s.newID()
	message.OccurredAt = s.now()
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"order_id":   message.OrderID,
			"event_type": message.Type,
			"error":      err.Error(),
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

var _ OrderService = (*orderService)(nil)

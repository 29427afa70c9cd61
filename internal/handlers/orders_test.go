package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/g1food/api/internal/domain"
	"github.com/g1food/api/internal/services"
)

type stubOrderService struct {
	mu                sync.Mutex
	checkoutFn        func(ctx context.Context, cmd services.CheckoutCommand) (services.OrderDetail, error)
	updateStatusFn    func(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error)
	getOrderFn        func(ctx context.Context, orderID string) (services.OrderDetail, error)
	ordersForFn       func(ctx context.Context, accountID string) ([]services.Order, error)
	ordersByChefFn    func(ctx context.Context, chefID string) ([]services.Order, error)
	ordersByShipperFn func(ctx context.Context, shipperID string) ([]services.Order, error)
	ordersByStatusFn  func(ctx context.Context, status services.OrderStatus) ([]services.Order, error)
	currentDeliveryFn func(ctx context.Context, shipperID string) (services.Order, bool, error)
}

func (s *stubOrderService) Checkout(ctx context.Context, cmd services.CheckoutCommand) (services.OrderDetail, error) {
	s.mu.Lock()
	fn := s.checkoutFn
	s.mu.Unlock()
	if fn == nil {
		return services.OrderDetail{}, nil
	}
	return fn(ctx, cmd)
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
	s.mu.Lock()
	fn := s.updateStatusFn
	s.mu.Unlock()
	if fn == nil {
		return services.Order{}, nil
	}
	return fn(ctx, cmd)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (services.OrderDetail, error) {
	s.mu.Lock()
	fn := s.getOrderFn
	s.mu.Unlock()
	if fn == nil {
		return services.OrderDetail{}, services.ErrOrderNotFound
	}
	return fn(ctx, orderID)
}

func (s *stubOrderService) OrdersFor(ctx context.Context, accountID string) ([]services.Order, error) {
	s.mu.Lock()
	fn := s.ordersForFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, accountID)
}

func (s *stubOrderService) OrdersByChef(ctx context.Context, chefID string) ([]services.Order, error) {
	s.mu.Lock()
	fn := s.ordersByChefFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, chefID)
}

func (s *stubOrderService) OrdersByShipper(ctx context.Context, shipperID string) ([]services.Order, error) {
	s.mu.Lock()
	fn := s.ordersByShipperFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, shipperID)
}

func (s *stubOrderService) OrdersByStatus(ctx context.Context, status services.OrderStatus) ([]services.Order, error) {
	s.mu.Lock()
	fn := s.ordersByStatusFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, status)
}

func (s *stubOrderService) CurrentDeliveryFor(ctx context.Context, shipperID string) (services.Order, bool, error) {
	s.mu.Lock()
	fn := s.currentDeliveryFn
	s.mu.Unlock()
	if fn == nil {
		return services.Order{}, false, nil
	}
	return fn(ctx, shipperID)
}

func newOrderRouter(orders services.OrderService) chi.Router {
	r := chi.NewRouter()
	NewOrderHandlers(orders).Routes(r)
	return r
}

func TestOrderHandlersCheckout(t *testing.T) {
	orders := &stubOrderService{
		checkoutFn: func(_ context.Context, cmd services.CheckoutCommand) (services.OrderDetail, error) {
			if cmd.AccountID != "US0001" {
				t.Fatalf("unexpected account %q", cmd.AccountID)
			}
			if cmd.Note != "no onions" || cmd.Buyer.Address != "99 Office Tower" {
				t.Fatalf("unexpected command %+v", cmd)
			}
			return services.OrderDetail{
				Order: services.Order{
					ID:        "OR0001",
					AccountID: cmd.AccountID,
					Status:    domain.OrderStatusProcessing,
					ShipperID: "SP0008",
				},
				Lines: []services.OrderLine{
					{ID: "OD0001", OrderID: "OR0001", ProductID: "BN0001", Quantity: 2, UnitPrice: 1200},
				},
			}, nil
		},
	}
	router := newOrderRouter(orders)

	payload := strings.NewReader(`{"note":"no onions","address":"99 Office Tower"}`)
	req := withAccount(httptest.NewRequest(http.MethodPost, "/checkout", payload), "US0001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Total  int64  `json:"total"`
		Lines  []struct {
			ID    string `json:"id"`
			Total int64  `json:"total"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.ID != "OR0001" || body.Status != string(domain.OrderStatusProcessing) {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Total != 2400 || len(body.Lines) != 1 || body.Lines[0].Total != 2400 {
		t.Fatalf("unexpected totals %+v", body)
	}
}

func TestOrderHandlersCheckoutWithoutBody(t *testing.T) {
	orders := &stubOrderService{
		checkoutFn: func(_ context.Context, cmd services.CheckoutCommand) (services.OrderDetail, error) {
			if cmd.Note != "" || cmd.Buyer != (services.Buyer{}) {
				t.Fatalf("expected empty command, got %+v", cmd)
			}
			return services.OrderDetail{Order: services.Order{ID: "OR0002", AccountID: cmd.AccountID}}, nil
		},
	}
	router := newOrderRouter(orders)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/checkout", nil), "US0001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", rr.Code, rr.Body.String())
	}
}

func TestOrderHandlersCheckoutEmptyCart(t *testing.T) {
	orders := &stubOrderService{
		checkoutFn: func(_ context.Context, _ services.CheckoutCommand) (services.OrderDetail, error) {
			return services.OrderDetail{}, services.ErrEmptyCart
		},
	}
	router := newOrderRouter(orders)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/checkout", nil), "US0001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "empty_cart") {
		t.Fatalf("expected empty_cart code, got %s", rr.Body.String())
	}
}

func TestOrderHandlersCheckoutConflict(t *testing.T) {
	orders := &stubOrderService{
		checkoutFn: func(_ context.Context, _ services.CheckoutCommand) (services.OrderDetail, error) {
			return services.OrderDetail{}, services.ErrCheckoutConflict
		},
	}
	router := newOrderRouter(orders)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/checkout", nil), "US0001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestOrderHandlersListOrders(t *testing.T) {
	orders := &stubOrderService{
		ordersForFn: func(_ context.Context, accountID string) ([]services.Order, error) {
			return []services.Order{
				{ID: "OR0002", AccountID: accountID, Status: domain.OrderStatusCooking},
				{ID: "OR0001", AccountID: accountID, Status: domain.OrderStatusCompleted},
			}, nil
		},
	}
	router := newOrderRouter(orders)

	req := withAccount(httptest.NewRequest(http.MethodGet, "/", nil), "US0001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Orders []struct {
			ID string `json:"id"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Orders) != 2 || body.Orders[0].ID != "OR0002" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestOrderHandlersGetOrderVisibility(t *testing.T) {
	detail := services.OrderDetail{
		Order: services.Order{
			ID:        "OR0001",
			AccountID: "US0001",
			Status:    domain.OrderStatusDelivering,
			ChefID:    "CH0002",
			ShipperID: "SP0003",
		},
	}
	tests := []struct {
		name     string
		caller   string
		wantCode int
	}{
		{name: "owner", caller: "US0001", wantCode: http.StatusOK},
		{name: "assigned chef", caller: "CH0002", wantCode: http.StatusOK},
		{name: "assigned shipper", caller: "SP0003", wantCode: http.StatusOK},
		{name: "admin", caller: "AD0001", wantCode: http.StatusOK},
		{name: "other customer", caller: "US0002", wantCode: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			orders := &stubOrderService{
				getOrderFn: func(_ context.Context, orderID string) (services.OrderDetail, error) {
					return detail, nil
				},
			}
			router := newOrderRouter(orders)

			req := withAccount(httptest.NewRequest(http.MethodGet, "/OR0001", nil), tc.caller)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d body %s", tc.wantCode, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	req := withAccount(httptest.NewRequest(http.MethodGet, "/OR0404", nil), "US0001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestOrderHandlersCancelOrder(t *testing.T) {
	orders := &stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
			if cmd.OrderID != "OR0001" || cmd.ActorID != "US0001" || cmd.Target != domain.OrderStatusCancelled {
				t.Fatalf("unexpected command %+v", cmd)
			}
			return services.Order{ID: cmd.OrderID, AccountID: cmd.ActorID, Status: domain.OrderStatusCancelled}, nil
		},
	}
	router := newOrderRouter(orders)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/OR0001/cancel", nil), "US0001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Status != string(domain.OrderStatusCancelled) {
		t.Fatalf("expected cancelled, got %q", body.Status)
	}
}

func TestOrderHandlersCancelOrderRoleGate(t *testing.T) {
	orders := &stubOrderService{
		updateStatusFn: func(_ context.Context, _ services.UpdateOrderStatusCommand) (services.Order, error) {
			return services.Order{}, services.ErrRoleNotAllowed
		},
	}
	router := newOrderRouter(orders)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/OR0001/cancel", nil), "US0002")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestOrderHandlersCancelOrderInvalidTransition(t *testing.T) {
	orders := &stubOrderService{
		updateStatusFn: func(_ context.Context, _ services.UpdateOrderStatusCommand) (services.Order, error) {
			return services.Order{}, services.ErrInvalidTransition
		},
	}
	router := newOrderRouter(orders)

	req := withAccount(httptest.NewRequest(http.MethodPost, "/OR0001/cancel", nil), "US0001")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

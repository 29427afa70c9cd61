package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/g1food/api/internal/domain"
	"github.com/g1food/api/internal/platform/httpx"
	"github.com/g1food/api/internal/services"
)

const maxOrderBodySize = 16 * 1024

// OrderHandlers exposes customer-facing order endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs handlers over the order service.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
	r.Post("/checkout", h.checkout)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
}

type checkoutRequest struct {
	Note    string `json:"note"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type orderPayload struct {
	ID          string             `json:"id"`
	AccountID   string             `json:"accountId"`
	Status      string             `json:"status"`
	Note        string             `json:"note,omitempty"`
	BuyerName   string             `json:"buyerName,omitempty"`
	BuyerPhone  string             `json:"buyerPhone,omitempty"`
	BuyerAddr   string             `json:"buyerAddress,omitempty"`
	VoucherID   string             `json:"voucherId,omitempty"`
	SalePercent int                `json:"salePercent,omitempty"`
	ChefID      string             `json:"chefId,omitempty"`
	ShipperID   string             `json:"shipperId,omitempty"`
	CreatedAt   string             `json:"createdAt,omitempty"`
	UpdatedAt   string             `json:"updatedAt,omitempty"`
	Lines       []orderLinePayload `json:"lines,omitempty"`
	Total       int64              `json:"total,omitempty"`
}

type orderLinePayload struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Total     int64  `json:"total"`
}

func (h *OrderHandlers) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}

	cmd := services.CheckoutCommand{AccountID: accountID}
	body, err := readLimitedBody(r, maxOrderBodySize)
	switch {
	case err == nil:
		var req checkoutRequest
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
			return
		}
		cmd.Note = req.Note
		cmd.Buyer = services.Buyer{Name: req.Name, Phone: req.Phone, Address: req.Address}
	case errors.Is(err, errEmptyBody):
		// Checkout without overrides is valid.
	default:
		writeBodyError(ctx, w, err)
		return
	}

	detail, err := h.orders.Checkout(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderDetailPayload(detail))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}

	orders, err := h.orders.OrdersFor(ctx, accountID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, ordersResponse(orders))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	detail, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if !mayViewOrder(detail.Order, accountID) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, orderDetailPayload(detail))
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID: orderID,
		ActorID: accountID,
		Target:  domain.OrderStatusCancelled,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderSummaryPayload(order))
}

// mayViewOrder hides orders from accounts that are neither the buyer, the
// assigned staff, nor an admin.
func mayViewOrder(order services.Order, accountID string) bool {
	if order.AccountID == accountID {
		return true
	}
	if order.ChefID == accountID || order.ShipperID == accountID {
		return true
	}
	return domain.RoleOf(accountID) == domain.RoleAdmin
}

func ordersResponse(orders []services.Order) map[string]any {
	payloads := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payloads = append(payloads, orderSummaryPayload(order))
	}
	return map[string]any{"orders": payloads}
}

func orderSummaryPayload(order services.Order) orderPayload {
	return orderPayload{
		ID:          order.ID,
		AccountID:   order.AccountID,
		Status:      string(order.Status),
		Note:        order.Note,
		BuyerName:   order.Buyer.Name,
		BuyerPhone:  order.Buyer.Phone,
		BuyerAddr:   order.Buyer.Address,
		VoucherID:   order.VoucherID,
		SalePercent: order.SalePercent,
		ChefID:      order.ChefID,
		ShipperID:   order.ShipperID,
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
	}
}

func orderDetailPayload(detail services.OrderDetail) orderPayload {
	payload := orderSummaryPayload(detail.Order)
	var total int64
	payload.Lines = make([]orderLinePayload, 0, len(detail.Lines))
	for _, line := range detail.Lines {
		lineTotal := line.Total()
		total += lineTotal
		payload.Lines = append(payload.Lines, orderLinePayload{
			ID:        line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Total:     lineTotal,
		})
	}
	payload.Total = total
	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no lines to check out", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrRoleNotAllowed):
		httpx.WriteError(ctx, w, httpx.NewError("role_not_allowed", err.Error(), http.StatusForbidden))
	case errors.Is(err, services.ErrCheckoutConflict), errors.Is(err, services.ErrOrderConflict), errors.Is(err, services.ErrSequenceConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order was modified concurrently, retry", http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable), errors.Is(err, services.ErrIdentifierUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

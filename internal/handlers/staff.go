package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/g1food/api/internal/domain"
	"github.com/g1food/api/internal/platform/httpx"
	"github.com/g1food/api/internal/services"
)

// StaffHandlers exposes the kitchen, delivery and admin order views.
type StaffHandlers struct {
	orders services.OrderService
}

// NewStaffHandlers constructs handlers over the order service.
func NewStaffHandlers(orders services.OrderService) *StaffHandlers {
	return &StaffHandlers{orders: orders}
}

// Routes wires the /staff endpoints onto the provided router.
func (h *StaffHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listByStatus)
	r.Post("/orders/{orderID}/status", h.updateStatus)
	r.Get("/kitchen/orders", h.kitchenOrders)
	r.Get("/delivery/orders", h.deliveryOrders)
	r.Get("/delivery/current", h.currentDelivery)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// listByStatus serves the shared work queue, e.g. PROCESSING orders waiting
// for a chef.
func (h *StaffHandlers) listByStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}
	if !isStaff(accountID) {
		httpx.WriteError(ctx, w, httpx.NewError("role_not_allowed", "staff access required", http.StatusForbidden))
		return
	}

	rawStatus := strings.TrimSpace(r.URL.Query().Get("status"))
	if rawStatus == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status query parameter is required", http.StatusBadRequest))
		return
	}
	status, ok := domain.ParseOrderStatus(rawStatus)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("unknown status %q", rawStatus), http.StatusBadRequest))
		return
	}

	orders, err := h.orders.OrdersByStatus(ctx, status)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, ordersResponse(orders))
}

func (h *StaffHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
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

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}
	target, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("unknown status %q", req.Status), http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID: orderID,
		ActorID: accountID,
		Target:  target,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderSummaryPayload(order))
}

func (h *StaffHandlers) kitchenOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}
	if domain.RoleOf(accountID) != domain.RoleKitchen {
		httpx.WriteError(ctx, w, httpx.NewError("role_not_allowed", "kitchen access required", http.StatusForbidden))
		return
	}

	orders, err := h.orders.OrdersByChef(ctx, accountID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, ordersResponse(orders))
}

func (h *StaffHandlers) deliveryOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}
	if domain.RoleOf(accountID) != domain.RoleDelivery {
		httpx.WriteError(ctx, w, httpx.NewError("role_not_allowed", "delivery access required", http.StatusForbidden))
		return
	}

	orders, err := h.orders.OrdersByShipper(ctx, accountID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, ordersResponse(orders))
}

func (h *StaffHandlers) currentDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}
	if domain.RoleOf(accountID) != domain.RoleDelivery {
		httpx.WriteError(ctx, w, httpx.NewError("role_not_allowed", "delivery access required", http.StatusForbidden))
		return
	}

	order, found, err := h.orders.CurrentDeliveryFor(ctx, accountID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if !found {
		httpx.WriteError(ctx, w, httpx.NewError("no_current_delivery", "no order is out for delivery", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, orderSummaryPayload(order))
}

func isStaff(accountID string) bool {
	switch domain.RoleOf(accountID) {
	case domain.RoleAdmin, domain.RoleKitchen, domain.RoleDelivery:
		return true
	default:
		return false
	}
}

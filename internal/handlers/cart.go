package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/g1food/api/internal/platform/httpx"
	"github.com/g1food/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the calling account's cart endpoints.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs handlers over the cart service.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listLines)
	r.Delete("/", h.clearCart)
	r.Post("/lines", h.addLine)
	r.Delete("/lines/{lineID}", h.removeLine)
}

type addCartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartLinePayload struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice,omitempty"`
	SalePercent int    `json:"salePercent,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type cartResponse struct {
	Lines []cartLinePayload `json:"lines"`
}

func (h *CartHandlers) listLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}

	views, err := h.carts.ListLines(ctx, accountID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	payload := cartResponse{Lines: make([]cartLinePayload, 0, len(views))}
	for _, view := range views {
		payload.Lines = append(payload.Lines, cartLineViewPayload(view))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CartHandlers) addLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req addCartLineRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}

	line, err := h.carts.AddLine(ctx, services.AddCartLineCommand{
		AccountID: accountID,
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, cartLinePayload{
		ID:        line.ID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		CreatedAt: formatTime(line.CreatedAt),
		UpdatedAt: formatTime(line.UpdatedAt),
	})
}

func (h *CartHandlers) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}

	lineID := strings.TrimSpace(chi.URLParam(r, "lineID"))
	if lineID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "line id is required", http.StatusBadRequest))
		return
	}

	if err := h.carts.RemoveLine(ctx, services.RemoveCartLineCommand{AccountID: accountID, LineID: lineID}); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	accountID, ok := requireAccount(ctx, w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearAll(ctx, accountID); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func cartLineViewPayload(view services.CartLineView) cartLinePayload {
	return cartLinePayload{
		ID:          view.ID,
		ProductID:   view.ProductID,
		ProductName: view.ProductName,
		Quantity:    view.Quantity,
		UnitPrice:   view.UnitPrice,
		SalePercent: view.SalePercent,
		ImageURL:    view.ImageURL,
		CreatedAt:   formatTime(view.CreatedAt),
		UpdatedAt:   formatTime(view.UpdatedAt),
	}
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCartLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_line_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart was modified concurrently, retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

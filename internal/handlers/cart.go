package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/a2h-store/api/internal/platform/httpx"
	"github.com/a2h-store/api/internal/platform/requestctx"
	"github.com/a2h-store/api/internal/services"
)

const maxCartBodySize = 8 * 1024

// CartHandlers exposes the anonymous session cart endpoints.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs the session cart handlers.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{variantID}", h.updateQuantity)
	r.Delete("/items/{variantID}", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req addCartItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		SessionID: sessionID,
		ProductID: strings.TrimSpace(req.ProductID),
		VariantID: strings.TrimSpace(req.VariantID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	// openCart tells the storefront to pop the cart drawer after a successful add.
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart), "openCart": true})
}

type updateCartQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req updateCartQuantityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, services.UpdateCartQuantityCommand{
		SessionID: sessionID,
		VariantID: chi.URLParam(r, "variantID"),
		Quantity:  *req.Quantity,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, sessionID, chi.URLParam(r, "variantID"))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(ctx, sessionID); err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(services.Cart{SessionID: sessionID})})
}

func (h *CartHandlers) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart service unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	sessionID := requestctx.SessionID(ctx)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "storefront session cookie is required", http.StatusBadRequest))
		return "", false
	}
	return sessionID, true
}

func (h *CartHandlers) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid cart request", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartVariantNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("variant_not_found", "product variant not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartVariantUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("variant_out_of_stock", "product variant is out of stock", http.StatusConflict))
	case errors.Is(err, services.ErrCartLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_line_not_found", "cart has no line for this variant", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart temporarily unavailable", http.StatusServiceUnavailable))
	}
}

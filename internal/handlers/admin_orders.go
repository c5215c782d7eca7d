package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/a2h-store/api/internal/platform/auth"
	"github.com/a2h-store/api/internal/platform/httpx"
	platformstorage "github.com/a2h-store/api/internal/platform/storage"
	"github.com/a2h-store/api/internal/services"
)

const maxAdminOrderBodySize = 8 * 1024

// AdminOrderHandlers exposes the order review queue for staff and admins.
type AdminOrderHandlers struct {
	orders services.OrderService
}

// NewAdminOrderHandlers constructs the admin order handlers.
func NewAdminOrderHandlers(orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{orders: orders}
}

// Routes wires the admin order endpoints onto the provided router.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/status", h.transitionStatus)
	r.Get("/{orderID}/proof-url", h.proofDownloadURL)
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	filter := services.OrderListFilter{}
	for _, raw := range strings.Split(r.URL.Query().Get("status"), ",") {
		if st := strings.TrimSpace(raw); st != "" {
			filter.Status = append(filter.Status, services.OrderStatus(st))
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a non-negative integer", http.StatusBadRequest))
			return
		}
		filter.Limit = limit
	}

	orders, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": payload})
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

type orderStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *AdminOrderHandlers) transitionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminOrderBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req orderStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	actorID := ""
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		actorID = identity.UID
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  services.OrderStatus(strings.TrimSpace(req.Status)),
		Notes:   req.Notes,
		ActorID: actorID,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) proofDownloadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	if _, err := platformstorage.AuthorizeProofAccessFromContext(ctx); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("proof_forbidden", "payment proof access is restricted to staff", http.StatusForbidden))
		return
	}

	download, err := h.orders.ProofDownloadURL(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"url":       download.URL,
		"expiresAt": formatTime(download.ExpiresAt),
	})
}

func (h *AdminOrderHandlers) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid order request", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", "order is no longer pending", http.StatusConflict))
	case errors.Is(err, services.ErrOrderNoProof):
		httpx.WriteError(ctx, w, httpx.NewError("proof_not_found", "order has no payment proof", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "orders temporarily unavailable", http.StatusServiceUnavailable))
	}
}

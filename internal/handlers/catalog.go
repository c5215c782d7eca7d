package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/a2h-store/api/internal/platform/httpx"
	"github.com/a2h-store/api/internal/platform/requestctx"
	"github.com/a2h-store/api/internal/services"
)

const maxStorefrontBodySize = 4 * 1024

// StorefrontHandlers exposes the public, session-scoped storefront endpoints.
type StorefrontHandlers struct {
	catalog  services.CatalogService
	currency services.CurrencyService
	settings services.SettingsService
}

// NewStorefrontHandlers constructs the public storefront handlers.
func NewStorefrontHandlers(catalog services.CatalogService, currency services.CurrencyService, settings services.SettingsService) *StorefrontHandlers {
	return &StorefrontHandlers{
		catalog:  catalog,
		currency: currency,
		settings: settings,
	}
}

// Routes wires the storefront endpoints onto the provided router.
func (h *StorefrontHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/categories", h.listCategories)
	r.Put("/categories/{categoryID}/visibility", h.setCategoryVisibility)
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/currencies", h.listCurrencies)
	r.Put("/currency", h.setCurrency)
	r.Get("/settings", h.getSettings)
}

func (h *StorefrontHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	categories, err := h.catalog.ListCategories(ctx, requestctx.SessionID(ctx))
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	payload := make([]categoryPayload, 0, len(categories))
	for _, c := range categories {
		payload = append(payload, buildCategoryPayload(c))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"categories": payload})
}

type categoryVisibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// setCategoryVisibility hides or restores a category for this session only.
// The store-wide flag is an admin operation.
func (h *StorefrontHandlers) setCategoryVisibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID := requestctx.SessionID(ctx)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "storefront session cookie is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxStorefrontBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req categoryVisibilityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	categoryID := chi.URLParam(r, "categoryID")
	if err := h.catalog.SetCategoryHiddenLocally(ctx, sessionID, categoryID, req.Hidden); err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"categoryId": categoryID, "hidden": req.Hidden})
}

func (h *StorefrontHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	filter := services.ProductListFilter{
		CategoryID: strings.TrimSpace(r.URL.Query().Get("category")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a non-negative integer", http.StatusBadRequest))
			return
		}
		filter.Limit = limit
	}

	products, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	payload := make([]productPayload, 0, len(products))
	for _, p := range products {
		var quote *services.PriceQuote
		if q, ok := h.catalog.LowestPrice(p); ok {
			quote = &q
		}
		payload = append(payload, buildProductPayload(p, quote))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": payload})
}

func (h *StorefrontHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	// Drafts are invisible to shoppers.
	if product.Status != "published" {
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
		return
	}

	var quote *services.PriceQuote
	if q, ok := h.catalog.LowestPrice(product); ok {
		quote = &q
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": buildProductPayload(product, quote)})
}

type currencyPayload struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	NameAr string  `json:"nameAr"`
	Rate   float64 `json:"rate"`
}

func (h *StorefrontHandlers) listCurrencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.currency == nil {
		httpx.WriteError(ctx, w, httpx.NewError("currency_unavailable", "currency service unavailable", http.StatusServiceUnavailable))
		return
	}

	payload := make([]currencyPayload, 0, 8)
	for _, c := range h.currency.List() {
		payload = append(payload, currencyPayload{Code: c.Code, Symbol: c.Symbol, Name: c.Name, NameAr: c.NameAr, Rate: c.Rate})
	}
	current := h.currency.CurrentCurrency(ctx, requestctx.SessionID(ctx))
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"currencies": payload,
		"current":    current.Code,
	})
}

type setCurrencyRequest struct {
	Code string `json:"code"`
}

func (h *StorefrontHandlers) setCurrency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.currency == nil {
		httpx.WriteError(ctx, w, httpx.NewError("currency_unavailable", "currency service unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID := requestctx.SessionID(ctx)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "storefront session cookie is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxStorefrontBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req setCurrencyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	currency, err := h.currency.SetCurrency(ctx, sessionID, req.Code)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("currency_error", "could not store currency choice", http.StatusInternalServerError))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"currency": currencyPayload{Code: currency.Code, Symbol: currency.Symbol, Name: currency.Name, NameAr: currency.NameAr, Rate: currency.Rate},
	})
}

func (h *StorefrontHandlers) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("settings_unavailable", "settings service unavailable", http.StatusServiceUnavailable))
		return
	}

	settings, err := h.settings.Settings(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("settings_unavailable", "bank transfer details unavailable", http.StatusServiceUnavailable))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"accountName": settings.AccountName,
		"iban":        settings.IBAN,
	})
}

func (h *StorefrontHandlers) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid catalog request", http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "catalog entry not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog temporarily unavailable", http.StatusServiceUnavailable))
	}
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/a2h-store/api/internal/platform/httpx"
	"github.com/a2h-store/api/internal/services"
)

const maxAdminCatalogBodySize = 64 * 1024

// AdminCatalogHandlers exposes catalog maintenance for staff and admins.
type AdminCatalogHandlers struct {
	catalog services.CatalogService
}

// NewAdminCatalogHandlers constructs the admin catalog handlers.
func NewAdminCatalogHandlers(catalog services.CatalogService) *AdminCatalogHandlers {
	return &AdminCatalogHandlers{catalog: catalog}
}

// Routes wires the admin catalog endpoints onto the provided router.
func (h *AdminCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.upsertCategory)
	r.Delete("/categories/{categoryID}", h.deleteCategory)
	r.Put("/categories/{categoryID}/visibility", h.setCategoryHidden)
	r.Get("/products", h.listProducts)
	r.Post("/products", h.upsertProduct)
	r.Delete("/products/{productID}", h.deleteProduct)
}

func (h *AdminCatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	categories, err := h.catalog.ListAllCategories(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payload := make([]categoryPayload, 0, len(categories))
	for _, c := range categories {
		payload = append(payload, buildCategoryPayload(c))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"categories": payload})
}

type upsertCategoryRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NameAr    string `json:"nameAr"`
	Slug      string `json:"slug"`
	IconURL   string `json:"iconUrl"`
	SortOrder int    `json:"sortOrder"`
	Hidden    bool   `json:"hidden"`
}

func (h *AdminCatalogHandlers) upsertCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminCatalogBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req upsertCategoryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	category, err := h.catalog.UpsertCategory(ctx, services.UpsertCategoryCommand{
		ID:        req.ID,
		Name:      req.Name,
		NameAr:    req.NameAr,
		Slug:      req.Slug,
		IconURL:   req.IconURL,
		SortOrder: req.SortOrder,
		Hidden:    req.Hidden,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if strings.TrimSpace(req.ID) == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, map[string]any{"category": buildCategoryPayload(category)})
}

func (h *AdminCatalogHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.catalog.DeleteCategory(ctx, chi.URLParam(r, "categoryID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryHiddenRequest struct {
	Hidden bool `json:"hidden"`
}

// setCategoryHidden toggles the store-wide hidden flag, affecting every
// shopper rather than a single session.
func (h *AdminCatalogHandlers) setCategoryHidden(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminCatalogBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req categoryHiddenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	category, err := h.catalog.SetCategoryHidden(ctx, chi.URLParam(r, "categoryID"), req.Hidden)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"category": buildCategoryPayload(category)})
}

func (h *AdminCatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	filter := services.ProductListFilter{
		CategoryID:    strings.TrimSpace(r.URL.Query().Get("category")),
		IncludeDrafts: true,
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
		h.writeError(w, r, err)
		return
	}
	payload := make([]productPayload, 0, len(products))
	for _, p := range products {
		payload = append(payload, buildProductPayload(p, nil))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": payload})
}

type upsertVariantRequest struct {
	ID        string   `json:"id"`
	Duration  string   `json:"duration"`
	Price     float64  `json:"price"`
	SalePrice *float64 `json:"salePrice"`
	InStock   bool     `json:"inStock"`
}

type upsertProductRequest struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	NameAr      string                 `json:"nameAr"`
	Description string                 `json:"description"`
	ImageURL    string                 `json:"imageUrl"`
	CategoryID  string                 `json:"categoryId"`
	Published   bool                   `json:"published"`
	Variants    []upsertVariantRequest `json:"variants"`
}

func (h *AdminCatalogHandlers) upsertProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminCatalogBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req upsertProductRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.UpsertProductCommand{
		ID:          req.ID,
		Name:        req.Name,
		NameAr:      req.NameAr,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		Published:   req.Published,
	}
	for _, v := range req.Variants {
		cmd.Variants = append(cmd.Variants, services.UpsertVariantCommand{
			ID:        v.ID,
			Duration:  v.Duration,
			Price:     v.Price,
			SalePrice: v.SalePrice,
			InStock:   v.InStock,
		})
	}

	product, err := h.catalog.UpsertProduct(ctx, cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if strings.TrimSpace(req.ID) == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, map[string]any{"product": buildProductPayload(product, nil)})
}

func (h *AdminCatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid catalog payload", http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "catalog entry not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog temporarily unavailable", http.StatusServiceUnavailable))
	}
}

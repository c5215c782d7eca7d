package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/a2h-store/api/internal/domain"
	"github.com/a2h-store/api/internal/platform/prefs"
	"github.com/a2h-store/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid catalog parameters.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the requested catalog entity does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogUnavailable indicates catalog dependencies are currently unavailable.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

// CatalogServiceDeps wires the dependencies required by the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Prefs   prefs.Store
	IDGen   func() string
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	catalog repositories.CatalogRepository
	prefs   prefs.Store
	newID   func() string
	now     func() time.Time
	logger  func(ctx context.Context, event string, fields map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs a CatalogService validating required dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}
	if deps.Prefs == nil {
		return nil, errors.New("catalog service: prefs store is required")
	}
	if deps.IDGen == nil {
		return nil, errors.New("catalog service: id generator is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		catalog: deps.Catalog,
		prefs:   deps.Prefs,
		newID:   deps.IDGen,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// ListCategories returns the categories visible to this session: store-wide
// hidden categories are excluded, then the session's locally hidden set
// filters the remainder.
func (s *catalogService) ListCategories(ctx context.Context, sessionID string) ([]Category, error) {
	categories, err := s.catalog.ListCategories(ctx, false)
	if err != nil {
		return nil, s.translateError(ctx, err)
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return categories, nil
	}

	hiddenIDs, err := prefs.GetJSON[[]string](ctx, s.prefs, sessionID, prefs.KeyHiddenCategories)
	if err != nil {
		if !errors.Is(err, prefs.ErrNotFound) && !errors.Is(err, prefs.ErrInvalidSession) {
			s.logger(ctx, "catalog.local_hidden_read_failed", map[string]any{
				"error": err.Error(),
			})
		}
		return categories, nil
	}
	if len(hiddenIDs) == 0 {
		return categories, nil
	}

	hidden := make(map[string]struct{}, len(hiddenIDs))
	for _, id := range hiddenIDs {
		hidden[id] = struct{}{}
	}
	visible := categories[:0]
	for _, c := range categories {
		if _, ok := hidden[c.ID]; !ok {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// ListAllCategories returns every category including hidden ones, for admin use.
func (s *catalogService) ListAllCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.catalog.ListCategories(ctx, true)
	if err != nil {
		return nil, s.translateError(ctx, err)
	}
	return categories, nil
}

// ListProducts returns products honouring the filter. Storefront callers get
// published products only.
func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) ([]Product, error) {
	products, err := s.catalog.ListProducts(ctx, repositories.ProductFilter{
		CategoryID:    strings.TrimSpace(filter.CategoryID),
		OnlyPublished: !filter.IncludeDrafts,
		Limit:         filter.Limit,
	})
	if err != nil {
		return nil, s.translateError(ctx, err)
	}
	return products, nil
}

// GetProduct fetches a product regardless of publication state.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return Product{}, s.translateError(ctx, err)
	}
	return product, nil
}

// LowestPrice returns the cheapest purchase option for the product. In-stock
// variants are preferred; a fully out-of-stock product falls back to all
// variants. Ties keep the first variant in catalog order.
func (s *catalogService) LowestPrice(product Product) (PriceQuote, bool) {
	candidates := make([]Variant, 0, len(product.Variants))
	for _, v := range product.Variants {
		if v.InStock() {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		candidates = product.Variants
	}
	if len(candidates) == 0 {
		return PriceQuote{}, false
	}

	best := candidates[0]
	for _, v := range candidates[1:] {
		if v.EffectivePrice() < best.EffectivePrice() {
			best = v
		}
	}
	return PriceQuote{Price: best.Price, SalePrice: best.SalePrice}, true
}

// UpsertCategory creates or updates a category.
func (s *catalogService) UpsertCategory(ctx context.Context, cmd UpsertCategoryCommand) (Category, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Category{}, ErrCatalogInvalidInput
	}

	now := s.now()
	category := domain.Category{
		ID:        strings.TrimSpace(cmd.ID),
		Name:      name,
		NameAr:    strings.TrimSpace(cmd.NameAr),
		Slug:      strings.TrimSpace(cmd.Slug),
		IconURL:   strings.TrimSpace(cmd.IconURL),
		SortOrder: cmd.SortOrder,
		Hidden:    cmd.Hidden,
		UpdatedAt: now,
	}
	if category.ID == "" {
		category.ID = s.newID()
		category.CreatedAt = now
	} else {
		existing, err := s.catalog.GetCategory(ctx, category.ID)
		if err != nil {
			return Category{}, s.translateError(ctx, err)
		}
		category.CreatedAt = existing.CreatedAt
	}
	if category.Slug == "" {
		category.Slug = slugify(name)
	}

	saved, err := s.catalog.UpsertCategory(ctx, category)
	if err != nil {
		return Category{}, s.translateError(ctx, err)
	}
	return saved, nil
}

// DeleteCategory removes a category. Products keep their category reference
// and simply stop matching the filter.
func (s *catalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return ErrCatalogInvalidInput
	}
	if err := s.catalog.DeleteCategory(ctx, categoryID); err != nil {
		return s.translateError(ctx, err)
	}
	return nil
}

// SetCategoryHidden toggles store-wide visibility of a category.
func (s *catalogService) SetCategoryHidden(ctx context.Context, categoryID string, hidden bool) (Category, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return Category{}, ErrCatalogInvalidInput
	}
	category, err := s.catalog.SetCategoryHidden(ctx, categoryID, hidden, s.now())
	if err != nil {
		return Category{}, s.translateError(ctx, err)
	}
	return category, nil
}

// SetCategoryHiddenLocally records a session-scoped hiding choice that only
// affects this browser session.
func (s *catalogService) SetCategoryHiddenLocally(ctx context.Context, sessionID, categoryID string, hidden bool) error {
	sessionID = strings.TrimSpace(sessionID)
	categoryID = strings.TrimSpace(categoryID)
	if sessionID == "" || categoryID == "" {
		return ErrCatalogInvalidInput
	}

	hiddenIDs, err := prefs.GetJSON[[]string](ctx, s.prefs, sessionID, prefs.KeyHiddenCategories)
	if err != nil && !errors.Is(err, prefs.ErrNotFound) {
		if errors.Is(err, prefs.ErrInvalidSession) {
			return ErrCatalogInvalidInput
		}
		return ErrCatalogUnavailable
	}

	present := false
	for _, id := range hiddenIDs {
		if id == categoryID {
			present = true
			break
		}
	}

	switch {
	case hidden && !present:
		hiddenIDs = append(hiddenIDs, categoryID)
	case !hidden && present:
		kept := hiddenIDs[:0]
		for _, id := range hiddenIDs {
			if id != categoryID {
				kept = append(kept, id)
			}
		}
		hiddenIDs = kept
	default:
		return nil
	}

	if err := prefs.SetJSON(ctx, s.prefs, sessionID, prefs.KeyHiddenCategories, hiddenIDs); err != nil {
		return ErrCatalogUnavailable
	}
	return nil
}

// UpsertProduct creates or updates a product with its variants.
func (s *catalogService) UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" || len(cmd.Variants) == 0 {
		return Product{}, ErrCatalogInvalidInput
	}
	for _, v := range cmd.Variants {
		if strings.TrimSpace(v.Duration) == "" || v.Price < 0 {
			return Product{}, ErrCatalogInvalidInput
		}
		// A sale at or above the base price is odd but legal; admins use
		// it to stage promotions before adjusting the base.
		if v.SalePrice != nil && *v.SalePrice < 0 {
			return Product{}, ErrCatalogInvalidInput
		}
	}

	now := s.now()
	product := domain.Product{
		ID:          strings.TrimSpace(cmd.ID),
		Name:        name,
		NameAr:      strings.TrimSpace(cmd.NameAr),
		Description: strings.TrimSpace(cmd.Description),
		ImageURL:    strings.TrimSpace(cmd.ImageURL),
		CategoryID:  strings.TrimSpace(cmd.CategoryID),
		Status:      domain.PublishStatusDraft,
		UpdatedAt:   now,
	}
	if cmd.Published {
		product.Status = domain.PublishStatusPublished
	}
	if product.ID == "" {
		product.ID = s.newID()
		product.CreatedAt = now
	} else {
		existing, err := s.catalog.GetProduct(ctx, product.ID)
		if err != nil {
			return Product{}, s.translateError(ctx, err)
		}
		product.CreatedAt = existing.CreatedAt
	}

	product.Variants = make([]domain.Variant, 0, len(cmd.Variants))
	for _, v := range cmd.Variants {
		variant := domain.Variant{
			ID:        strings.TrimSpace(v.ID),
			ProductID: product.ID,
			Duration:  strings.TrimSpace(v.Duration),
			Price:     v.Price,
			SalePrice: v.SalePrice,
			Stock:     domain.StockStatusOutOfStock,
		}
		if v.InStock {
			variant.Stock = domain.StockStatusInStock
		}
		if variant.ID == "" {
			variant.ID = s.newID()
		}
		product.Variants = append(product.Variants, variant)
	}

	saved, err := s.catalog.UpsertProduct(ctx, product)
	if err != nil {
		return Product{}, s.translateError(ctx, err)
	}
	return saved, nil
}

// DeleteProduct removes a product with its embedded variants.
func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrCatalogInvalidInput
	}
	if err := s.catalog.DeleteProduct(ctx, productID); err != nil {
		return s.translateError(ctx, err)
	}
	return nil
}

func (s *catalogService) translateError(ctx context.Context, err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCatalogNotFound
		}
	}
	s.logger(ctx, "catalog.repository_error", map[string]any{
		"error": err.Error(),
	})
	return ErrCatalogUnavailable
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

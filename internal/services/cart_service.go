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

const maxCartLineQuantity = 99

var (
	// ErrCartInvalidInput indicates the caller supplied invalid cart parameters.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartVariantNotFound indicates the referenced product or variant does not exist.
	ErrCartVariantNotFound = errors.New("cart: variant not found")
	// ErrCartVariantUnavailable indicates the variant is listed but out of stock.
	ErrCartVariantUnavailable = errors.New("cart: variant out of stock")
	// ErrCartLineNotFound indicates the session cart has no line for the variant.
	ErrCartLineNotFound = errors.New("cart: line not found")
	// ErrCartUnavailable indicates cart dependencies are currently unavailable.
	ErrCartUnavailable = errors.New("cart: unavailable")
)

// CartServiceDeps wires the dependencies required by the cart service.
type CartServiceDeps struct {
	Prefs   prefs.Store
	Catalog repositories.CatalogRepository
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	prefs   prefs.Store
	catalog repositories.CatalogRepository
	now     func() time.Time
	logger  func(ctx context.Context, event string, fields map[string]any)
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs a CartService validating required dependencies.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Prefs == nil {
		return nil, errors.New("cart service: prefs store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		prefs:   deps.Prefs,
		catalog: deps.Catalog,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// GetCart loads the session cart, returning an empty cart for new sessions.
func (s *cartService) GetCart(ctx context.Context, sessionID string) (Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	lines, err := prefs.GetJSON[[]cartLineRecord](ctx, s.prefs, sessionID, prefs.KeyCart)
	if err != nil {
		if errors.Is(err, prefs.ErrNotFound) {
			return Cart{SessionID: sessionID}, nil
		}
		if errors.Is(err, prefs.ErrInvalidSession) {
			return Cart{}, ErrCartInvalidInput
		}
		return Cart{}, ErrCartUnavailable
	}
	return decodeCartLines(sessionID, lines), nil
}

// AddItem adds a published, in-stock variant to the cart, merging quantities
// when the variant is already present.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	productID := strings.TrimSpace(cmd.ProductID)
	variantID := strings.TrimSpace(cmd.VariantID)
	if sessionID == "" || productID == "" || variantID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	quantity := cmd.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	product, err := s.catalog.GetPublishedProduct(ctx, productID)
	if err != nil {
		return Cart{}, s.translateCatalogError(ctx, err)
	}

	variant, ok := findVariant(product, variantID)
	if !ok {
		return Cart{}, ErrCartVariantNotFound
	}
	if !variant.InStock() {
		return Cart{}, ErrCartVariantUnavailable
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}

	now := s.now()
	merged := false
	for i := range cart.Lines {
		if cart.Lines[i].VariantID == variantID {
			cart.Lines[i].Quantity = clampQuantity(cart.Lines[i].Quantity + quantity)
			// Refresh the snapshot so renamed products and price edits
			// show up on the next drawer open.
			cart.Lines[i].ProductName = product.Name
			cart.Lines[i].ImageURL = product.ImageURL
			cart.Lines[i].Duration = variant.Duration
			cart.Lines[i].UnitPrice = variant.EffectivePrice()
			merged = true
			break
		}
	}
	if !merged {
		cart.Lines = append(cart.Lines, CartLine{
			VariantID:   variantID,
			ProductID:   productID,
			ProductName: product.Name,
			ImageURL:    product.ImageURL,
			Duration:    variant.Duration,
			UnitPrice:   variant.EffectivePrice(),
			Quantity:    clampQuantity(quantity),
			AddedAt:     now,
		})
	}
	cart.UpdatedAt = now

	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// UpdateQuantity replaces the quantity of an existing line. Zero or negative
// removes it.
func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (Cart, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	variantID := strings.TrimSpace(cmd.VariantID)
	if sessionID == "" || variantID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	if cmd.Quantity <= 0 {
		return s.RemoveItem(ctx, sessionID, variantID)
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}

	found := false
	for i := range cart.Lines {
		if cart.Lines[i].VariantID == variantID {
			cart.Lines[i].Quantity = clampQuantity(cmd.Quantity)
			found = true
			break
		}
	}
	if !found {
		return Cart{}, ErrCartLineNotFound
	}
	cart.UpdatedAt = s.now()

	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// RemoveItem drops the line for the variant. Missing lines are not an error.
func (s *cartService) RemoveItem(ctx context.Context, sessionID, variantID string) (Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	variantID = strings.TrimSpace(variantID)
	if sessionID == "" || variantID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}

	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		if line.VariantID != variantID {
			kept = append(kept, line)
		}
	}
	cart.Lines = kept
	cart.UpdatedAt = s.now()

	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// ClearCart removes all lines for the session.
func (s *cartService) ClearCart(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrCartInvalidInput
	}
	if err := s.prefs.Delete(ctx, sessionID, prefs.KeyCart); err != nil {
		if errors.Is(err, prefs.ErrInvalidSession) {
			return ErrCartInvalidInput
		}
		return ErrCartUnavailable
	}
	return nil
}

func (s *cartService) save(ctx context.Context, cart Cart) error {
	records := make([]cartLineRecord, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		records = append(records, cartLineRecord{
			VariantID:   line.VariantID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ImageURL:    line.ImageURL,
			Duration:    line.Duration,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			AddedAt:     line.AddedAt,
		})
	}
	if err := prefs.SetJSON(ctx, s.prefs, cart.SessionID, prefs.KeyCart, records); err != nil {
		s.logger(ctx, "cart.save_failed", map[string]any{
			"error": err.Error(),
		})
		if errors.Is(err, prefs.ErrInvalidSession) {
			return ErrCartInvalidInput
		}
		return ErrCartUnavailable
	}
	return nil
}

func (s *cartService) translateCatalogError(ctx context.Context, err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCartVariantNotFound
		}
	}
	s.logger(ctx, "cart.catalog_lookup_failed", map[string]any{
		"error": err.Error(),
	})
	return ErrCartUnavailable
}

func findVariant(product Product, variantID string) (Variant, bool) {
	for _, v := range product.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return Variant{}, false
}

func clampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	if q > maxCartLineQuantity {
		return maxCartLineQuantity
	}
	return q
}

// cartLineRecord is the JSON shape stored in the prefs store.
type cartLineRecord struct {
	VariantID   string    `json:"variantId"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	ImageURL    string    `json:"imageUrl"`
	Duration    string    `json:"duration"`
	UnitPrice   float64   `json:"unitPrice"`
	Quantity    int       `json:"quantity"`
	AddedAt     time.Time `json:"addedAt"`
}

func decodeCartLines(sessionID string, records []cartLineRecord) Cart {
	lines := make([]domain.CartLine, 0, len(records))
	var updatedAt time.Time
	for _, r := range records {
		lines = append(lines, domain.CartLine{
			VariantID:   r.VariantID,
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			ImageURL:    r.ImageURL,
			Duration:    r.Duration,
			UnitPrice:   r.UnitPrice,
			Quantity:    r.Quantity,
			AddedAt:     r.AddedAt,
		})
		if r.AddedAt.After(updatedAt) {
			updatedAt = r.AddedAt
		}
	}
	return Cart{SessionID: sessionID, Lines: lines, UpdatedAt: updatedAt}
}

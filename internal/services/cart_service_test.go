package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/a2h-store/api/internal/domain"
	"github.com/a2h-store/api/internal/platform/prefs"
)

func newCartServiceForTest(t *testing.T, catalog *stubCatalogRepo) CartService {
	t.Helper()
	if catalog == nil {
		catalog = &stubCatalogRepo{
			getPublishedFn: func(_ context.Context, productID string) (domain.Product, error) {
				p := publishedTwoVariantProduct()
				if productID != p.ID {
					return domain.Product{}, &stubRepoError{notFound: true}
				}
				return p, nil
			},
		}
	}
	svc, err := NewCartService(CartServiceDeps{
		Prefs:   prefs.NewMemoryStore(),
		Catalog: catalog,
		Clock:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func TestCartServiceAddItem(t *testing.T) {
	ctx := context.Background()
	svc := newCartServiceForTest(t, nil)
	const session = "sess-cart"

	cart, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: session, ProductID: "prod-1", VariantID: "var-month", Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem monthly: %v", err)
	}
	cart, err = svc.AddItem(ctx, AddCartItemCommand{SessionID: session, ProductID: "prod-1", VariantID: "var-year", Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem yearly: %v", err)
	}

	if len(cart.Lines) != 2 {
		t.Fatalf("cart has %d lines, want 2", len(cart.Lines))
	}
	if got := cart.TotalItems(); got != 3 {
		t.Fatalf("TotalItems() = %d, want 3", got)
	}
	// 2 x 16.50 plus the yearly sale price of 71.
	if got := cart.TotalPrice(); got != 104 {
		t.Fatalf("TotalPrice() = %v, want 104", got)
	}
	if cart.Lines[1].UnitPrice != 71 {
		t.Fatalf("yearly line uses price %v, want sale price 71", cart.Lines[1].UnitPrice)
	}

	// The cart round-trips through the preference store.
	loaded, err := svc.GetCart(ctx, session)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(loaded.Lines) != 2 || loaded.TotalPrice() != 104 {
		t.Fatalf("reloaded cart = %+v, want the saved two lines", loaded)
	}
}

func TestCartServiceAddItemMergesQuantity(t *testing.T) {
	ctx := context.Background()
	svc := newCartServiceForTest(t, nil)
	const session = "sess-merge"

	for i := 0; i < 2; i++ {
		if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: session, ProductID: "prod-1", VariantID: "var-month", Quantity: 3}); err != nil {
			t.Fatalf("AddItem #%d: %v", i+1, err)
		}
	}
	cart, err := svc.GetCart(ctx, session)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("cart has %d lines, want 1 merged line", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 6 {
		t.Fatalf("merged quantity = %d, want 6", cart.Lines[0].Quantity)
	}

	// Quantities saturate at the per-line ceiling.
	if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: session, ProductID: "prod-1", VariantID: "var-month", Quantity: 500}); err != nil {
		t.Fatalf("AddItem oversized: %v", err)
	}
	cart, _ = svc.GetCart(ctx, session)
	if cart.Lines[0].Quantity != maxCartLineQuantity {
		t.Fatalf("quantity = %d, want clamp at %d", cart.Lines[0].Quantity, maxCartLineQuantity)
	}
}

func TestCartServiceAddItemRejections(t *testing.T) {
	ctx := context.Background()
	svc := newCartServiceForTest(t, nil)

	tests := []struct {
		name    string
		cmd     AddCartItemCommand
		wantErr error
	}{
		{
			name:    "missing session",
			cmd:     AddCartItemCommand{ProductID: "prod-1", VariantID: "var-month"},
			wantErr: ErrCartInvalidInput,
		},
		{
			name:    "unknown product",
			cmd:     AddCartItemCommand{SessionID: "s1", ProductID: "prod-missing", VariantID: "var-month"},
			wantErr: ErrCartVariantNotFound,
		},
		{
			name:    "unknown variant",
			cmd:     AddCartItemCommand{SessionID: "s1", ProductID: "prod-1", VariantID: "var-nope"},
			wantErr: ErrCartVariantNotFound,
		},
		{
			name:    "out of stock variant",
			cmd:     AddCartItemCommand{SessionID: "s1", ProductID: "prod-1", VariantID: "var-sold-out"},
			wantErr: ErrCartVariantUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddItem(ctx, tt.cmd); !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddItem() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCartServiceUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	svc := newCartServiceForTest(t, nil)
	const session = "sess-update"

	if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: session, ProductID: "prod-1", VariantID: "var-month", Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	cart, err := svc.UpdateQuantity(ctx, UpdateCartQuantityCommand{SessionID: session, VariantID: "var-month", Quantity: 5})
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if cart.Lines[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", cart.Lines[0].Quantity)
	}

	if _, err := svc.UpdateQuantity(ctx, UpdateCartQuantityCommand{SessionID: session, VariantID: "var-ghost", Quantity: 2}); !errors.Is(err, ErrCartLineNotFound) {
		t.Fatalf("UpdateQuantity unknown line error = %v, want %v", err, ErrCartLineNotFound)
	}

	// Zero behaves like removal.
	cart, err = svc.UpdateQuantity(ctx, UpdateCartQuantityCommand{SessionID: session, VariantID: "var-month", Quantity: 0})
	if err != nil {
		t.Fatalf("UpdateQuantity to zero: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("cart has %d lines after zeroing, want 0", len(cart.Lines))
	}

	// So does any negative quantity.
	if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: session, ProductID: "prod-1", VariantID: "var-month", Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	cart, err = svc.UpdateQuantity(ctx, UpdateCartQuantityCommand{SessionID: session, VariantID: "var-month", Quantity: -5})
	if err != nil {
		t.Fatalf("UpdateQuantity to -5: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("cart has %d lines after negative quantity, want 0", len(cart.Lines))
	}
}

func TestCartServiceRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	svc := newCartServiceForTest(t, nil)
	const session = "sess-clear"

	if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: session, ProductID: "prod-1", VariantID: "var-month", Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: session, ProductID: "prod-1", VariantID: "var-year", Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	cart, err := svc.RemoveItem(ctx, session, "var-month")
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].VariantID != "var-year" {
		t.Fatalf("cart after removal = %+v, want only var-year", cart.Lines)
	}

	// Removing a line that is not present is not an error.
	if _, err := svc.RemoveItem(ctx, session, "var-ghost"); err != nil {
		t.Fatalf("RemoveItem absent line: %v", err)
	}

	if err := svc.ClearCart(ctx, session); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	cart, err = svc.GetCart(ctx, session)
	if err != nil {
		t.Fatalf("GetCart after clear: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("cart has %d lines after clear, want 0", len(cart.Lines))
	}
}

func TestCartServiceGetCartNewSession(t *testing.T) {
	svc := newCartServiceForTest(t, nil)

	cart, err := svc.GetCart(context.Background(), "fresh-session")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.SessionID != "fresh-session" || len(cart.Lines) != 0 {
		t.Fatalf("fresh cart = %+v, want empty cart bound to session", cart)
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/a2h-store/api/internal/platform/requestctx"
	"github.com/a2h-store/api/internal/services"
)

var errStubNotImplemented = errors.New("not implemented")

// withSession attaches a storefront session identifier to the request context,
// standing in for the session cookie middleware.
func withSession(req *http.Request, sessionID string) *http.Request {
	return req.WithContext(requestctx.WithSession(req.Context(), sessionID))
}

func requestWithSession(method, target, sessionID string) *http.Request {
	return withSession(httptest.NewRequest(method, target, nil), sessionID)
}

type stubCatalogService struct {
	listCategoriesFunc     func(ctx context.Context, sessionID string) ([]services.Category, error)
	listAllCategoriesFunc  func(ctx context.Context) ([]services.Category, error)
	listProductsFunc       func(ctx context.Context, filter services.ProductListFilter) ([]services.Product, error)
	getProductFunc         func(ctx context.Context, productID string) (services.Product, error)
	lowestPriceFunc        func(product services.Product) (services.PriceQuote, bool)
	upsertCategoryFunc     func(ctx context.Context, cmd services.UpsertCategoryCommand) (services.Category, error)
	deleteCategoryFunc     func(ctx context.Context, categoryID string) error
	setCategoryHiddenFunc  func(ctx context.Context, categoryID string, hidden bool) (services.Category, error)
	setCategoryLocallyFunc func(ctx context.Context, sessionID, categoryID string, hidden bool) error
	upsertProductFunc      func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error)
	deleteProductFunc      func(ctx context.Context, productID string) error
}

func (s *stubCatalogService) ListCategories(ctx context.Context, sessionID string) ([]services.Category, error) {
	if s.listCategoriesFunc == nil {
		return nil, errStubNotImplemented
	}
	return s.listCategoriesFunc(ctx, sessionID)
}

func (s *stubCatalogService) ListAllCategories(ctx context.Context) ([]services.Category, error) {
	if s.listAllCategoriesFunc == nil {
		return nil, errStubNotImplemented
	}
	return s.listAllCategoriesFunc(ctx)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.ProductListFilter) ([]services.Product, error) {
	if s.listProductsFunc == nil {
		return nil, errStubNotImplemented
	}
	return s.listProductsFunc(ctx, filter)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if s.getProductFunc == nil {
		return services.Product{}, errStubNotImplemented
	}
	return s.getProductFunc(ctx, productID)
}

func (s *stubCatalogService) LowestPrice(product services.Product) (services.PriceQuote, bool) {
	if s.lowestPriceFunc == nil {
		return services.PriceQuote{}, false
	}
	return s.lowestPriceFunc(product)
}

func (s *stubCatalogService) UpsertCategory(ctx context.Context, cmd services.UpsertCategoryCommand) (services.Category, error) {
	if s.upsertCategoryFunc == nil {
		return services.Category{}, errStubNotImplemented
	}
	return s.upsertCategoryFunc(ctx, cmd)
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	if s.deleteCategoryFunc == nil {
		return errStubNotImplemented
	}
	return s.deleteCategoryFunc(ctx, categoryID)
}

func (s *stubCatalogService) SetCategoryHidden(ctx context.Context, categoryID string, hidden bool) (services.Category, error) {
	if s.setCategoryHiddenFunc == nil {
		return services.Category{}, errStubNotImplemented
	}
	return s.setCategoryHiddenFunc(ctx, categoryID, hidden)
}

func (s *stubCatalogService) SetCategoryHiddenLocally(ctx context.Context, sessionID, categoryID string, hidden bool) error {
	if s.setCategoryLocallyFunc == nil {
		return errStubNotImplemented
	}
	return s.setCategoryLocallyFunc(ctx, sessionID, categoryID, hidden)
}

func (s *stubCatalogService) UpsertProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	if s.upsertProductFunc == nil {
		return services.Product{}, errStubNotImplemented
	}
	return s.upsertProductFunc(ctx, cmd)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteProductFunc == nil {
		return errStubNotImplemented
	}
	return s.deleteProductFunc(ctx, productID)
}

var _ services.CatalogService = (*stubCatalogService)(nil)

type stubCurrencyService struct {
	listFunc        func() []services.Currency
	getFunc         func(code string) (services.Currency, bool)
	convertFunc     func(amountSAR float64, code string) float64
	formatFunc      func(amount float64, code string, locale string) string
	setCurrencyFunc func(ctx context.Context, sessionID, code string) (services.Currency, error)
	currentFunc     func(ctx context.Context, sessionID string) services.Currency
}

func (s *stubCurrencyService) List() []services.Currency {
	if s.listFunc == nil {
		return nil
	}
	return s.listFunc()
}

func (s *stubCurrencyService) Get(code string) (services.Currency, bool) {
	if s.getFunc == nil {
		return services.Currency{}, false
	}
	return s.getFunc(code)
}

func (s *stubCurrencyService) Convert(amountSAR float64, code string) float64 {
	if s.convertFunc == nil {
		return amountSAR
	}
	return s.convertFunc(amountSAR, code)
}

func (s *stubCurrencyService) Format(amount float64, code string, locale string) string {
	if s.formatFunc == nil {
		return ""
	}
	return s.formatFunc(amount, code, locale)
}

func (s *stubCurrencyService) SetCurrency(ctx context.Context, sessionID, code string) (services.Currency, error) {
	if s.setCurrencyFunc == nil {
		return services.Currency{}, errStubNotImplemented
	}
	return s.setCurrencyFunc(ctx, sessionID, code)
}

func (s *stubCurrencyService) CurrentCurrency(ctx context.Context, sessionID string) services.Currency {
	if s.currentFunc == nil {
		return services.Currency{Code: "SAR"}
	}
	return s.currentFunc(ctx, sessionID)
}

var _ services.CurrencyService = (*stubCurrencyService)(nil)

type stubCartService struct {
	getCartFunc        func(ctx context.Context, sessionID string) (services.Cart, error)
	addItemFunc        func(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error)
	updateQuantityFunc func(ctx context.Context, cmd services.UpdateCartQuantityCommand) (services.Cart, error)
	removeItemFunc     func(ctx context.Context, sessionID, variantID string) (services.Cart, error)
	clearCartFunc      func(ctx context.Context, sessionID string) error
}

func (s *stubCartService) GetCart(ctx context.Context, sessionID string) (services.Cart, error) {
	if s.getCartFunc == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.getCartFunc(ctx, sessionID)
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
	if s.addItemFunc == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.addItemFunc(ctx, cmd)
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, cmd services.UpdateCartQuantityCommand) (services.Cart, error) {
	if s.updateQuantityFunc == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.updateQuantityFunc(ctx, cmd)
}

func (s *stubCartService) RemoveItem(ctx context.Context, sessionID, variantID string) (services.Cart, error) {
	if s.removeItemFunc == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.removeItemFunc(ctx, sessionID, variantID)
}

func (s *stubCartService) ClearCart(ctx context.Context, sessionID string) error {
	if s.clearCartFunc == nil {
		return errStubNotImplemented
	}
	return s.clearCartFunc(ctx, sessionID)
}

var _ services.CartService = (*stubCartService)(nil)

type stubCheckoutService struct {
	quoteFunc  func(ctx context.Context, sessionID string) (services.CheckoutQuote, error)
	submitFunc func(ctx context.Context, cmd services.SubmitOrderCommand) (services.Order, error)
}

func (s *stubCheckoutService) Quote(ctx context.Context, sessionID string) (services.CheckoutQuote, error) {
	if s.quoteFunc == nil {
		return services.CheckoutQuote{}, errStubNotImplemented
	}
	return s.quoteFunc(ctx, sessionID)
}

func (s *stubCheckoutService) Submit(ctx context.Context, cmd services.SubmitOrderCommand) (services.Order, error) {
	if s.submitFunc == nil {
		return services.Order{}, errStubNotImplemented
	}
	return s.submitFunc(ctx, cmd)
}

var _ services.CheckoutService = (*stubCheckoutService)(nil)

type stubOrderService struct {
	listOrdersFunc       func(ctx context.Context, filter services.OrderListFilter) ([]services.Order, error)
	getOrderFunc         func(ctx context.Context, orderID string) (services.Order, error)
	transitionFunc       func(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error)
	proofDownloadURLFunc func(ctx context.Context, orderID string) (services.ProofDownload, error)
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) ([]services.Order, error) {
	if s.listOrdersFunc == nil {
		return nil, errStubNotImplemented
	}
	return s.listOrdersFunc(ctx, filter)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (services.Order, error) {
	if s.getOrderFunc == nil {
		return services.Order{}, errStubNotImplemented
	}
	return s.getOrderFunc(ctx, orderID)
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
	if s.transitionFunc == nil {
		return services.Order{}, errStubNotImplemented
	}
	return s.transitionFunc(ctx, cmd)
}

func (s *stubOrderService) ProofDownloadURL(ctx context.Context, orderID string) (services.ProofDownload, error) {
	if s.proofDownloadURLFunc == nil {
		return services.ProofDownload{}, errStubNotImplemented
	}
	return s.proofDownloadURLFunc(ctx, orderID)
}

var _ services.OrderService = (*stubOrderService)(nil)

type stubSettingsService struct {
	settingsFunc func(ctx context.Context) (services.StoreSettings, error)
	updateFunc   func(ctx context.Context, cmd services.UpdateSettingsCommand) (services.StoreSettings, error)
}

func (s *stubSettingsService) Settings(ctx context.Context) (services.StoreSettings, error) {
	if s.settingsFunc == nil {
		return services.StoreSettings{}, errStubNotImplemented
	}
	return s.settingsFunc(ctx)
}

func (s *stubSettingsService) UpdateSettings(ctx context.Context, cmd services.UpdateSettingsCommand) (services.StoreSettings, error) {
	if s.updateFunc == nil {
		return services.StoreSettings{}, errStubNotImplemented
	}
	return s.updateFunc(ctx, cmd)
}

var _ services.SettingsService = (*stubSettingsService)(nil)

type stubSystemService struct {
	healthReportFunc func(ctx context.Context) (services.SystemHealthReport, error)
}

func (s *stubSystemService) HealthReport(ctx context.Context) (services.SystemHealthReport, error) {
	if s.healthReportFunc == nil {
		return services.SystemHealthReport{Status: "ok"}, nil
	}
	return s.healthReportFunc(ctx)
}

var _ services.SystemService = (*stubSystemService)(nil)

func sampleCart(sessionID string) services.Cart {
	return services.Cart{
		SessionID: sessionID,
		Lines: []services.CartLine{
			{
				VariantID:   "var-month",
				ProductID:   "prod-1",
				ProductName: "Shahid VIP",
				Duration:    "1 Month",
				UnitPrice:   16.50,
				Quantity:    2,
			},
			{
				VariantID:   "var-year",
				ProductID:   "prod-1",
				ProductName: "Shahid VIP",
				Duration:    "12 Months",
				UnitPrice:   71,
				Quantity:    1,
			},
		},
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func sampleOrder(id string) services.Order {
	return services.Order{
		ID:              id,
		FullName:        "Ahmed Al-Hasan",
		Phone:           "+97333112233",
		Email:           "ahmed@example.com",
		PlanID:          "prod-1",
		PlanName:        "Shahid VIP",
		Amount:          27.74,
		AmountSAR:       104,
		CurrencyCode:    "USD",
		CurrencySymbol:  "$",
		BenefitPayRef:   "BP-20250601-01",
		PaymentProofURL: "https://storage.googleapis.com/a2h-proofs/payment-proofs/" + id + "-1748779200000.png",
		Status:          services.OrderStatus("pending"),
		Items: []services.OrderItem{
			{OrderID: id, ProductID: "prod-1", VariantID: "var-month", ProductName: "Shahid VIP", Duration: "1 Month", Quantity: 2, UnitPrice: 16.50, LineTotal: 33},
			{OrderID: id, ProductID: "prod-1", VariantID: "var-year", ProductName: "Shahid VIP", Duration: "12 Months", Quantity: 1, UnitPrice: 71, LineTotal: 71},
		},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

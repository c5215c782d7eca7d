package services

import (
	"context"
	"time"

	domain "github.com/a2h-store/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	Variant            = domain.Variant
	PriceQuote         = domain.PriceQuote
	Category           = domain.Category
	Currency           = domain.Currency
	Cart               = domain.Cart
	CartLine           = domain.CartLine
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	StoreSettings      = domain.StoreSettings
	CheckoutQuote      = domain.CheckoutQuote
	SystemHealthReport = domain.SystemHealthReport
	SystemHealthCheck  = domain.SystemHealthCheck
)

// CatalogService serves storefront listings and admin catalog maintenance.
type CatalogService interface {
	// ListCategories returns visible categories for the session, combining
	// the store-wide hidden flag with the session's local hiding choices.
	ListCategories(ctx context.Context, sessionID string) ([]Category, error)
	ListAllCategories(ctx context.Context) ([]Category, error)
	ListProducts(ctx context.Context, filter ProductListFilter) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	// LowestPrice returns the cheapest purchase option for a product,
	// preferring in-stock variants.
	LowestPrice(product Product) (PriceQuote, bool)

	UpsertCategory(ctx context.Context, cmd UpsertCategoryCommand) (Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	SetCategoryHidden(ctx context.Context, categoryID string, hidden bool) (Category, error)
	SetCategoryHiddenLocally(ctx context.Context, sessionID, categoryID string, hidden bool) error

	UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// ProductListFilter narrows storefront and admin product listings.
type ProductListFilter struct {
	CategoryID    string
	IncludeDrafts bool
	Limit         int
}

// UpsertCategoryCommand carries admin category mutations.
type UpsertCategoryCommand struct {
	ID        string
	Name      string
	NameAr    string
	Slug      string
	IconURL   string
	SortOrder int
	Hidden    bool
}

// UpsertProductCommand carries admin product mutations.
type UpsertProductCommand struct {
	ID          string
	Name        string
	NameAr      string
	Description string
	ImageURL    string
	CategoryID  string
	Published   bool
	Variants    []UpsertVariantCommand
}

// UpsertVariantCommand describes one duration/price option under a product.
type UpsertVariantCommand struct {
	ID        string
	Duration  string
	Price     float64
	SalePrice *float64
	InStock   bool
}

// CurrencyService converts and formats base-currency prices for display.
type CurrencyService interface {
	List() []Currency
	Get(code string) (Currency, bool)
	// Convert translates a base-currency amount into the target currency,
	// rounded to two decimal places.
	Convert(amountSAR float64, code string) float64
	Format(amount float64, code string, locale string) string
	// SetCurrency records the session's display currency. Unknown codes
	// silently fall back to the base currency.
	SetCurrency(ctx context.Context, sessionID, code string) (Currency, error)
	CurrentCurrency(ctx context.Context, sessionID string) Currency
}

// CartService manages the session cart stored against the cart session cookie.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (Cart, error)
	RemoveItem(ctx context.Context, sessionID, variantID string) (Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// AddCartItemCommand adds a product variant to the session cart.
type AddCartItemCommand struct {
	SessionID string
	ProductID string
	VariantID string
	Quantity  int
}

// UpdateCartQuantityCommand replaces the quantity of an existing cart line.
type UpdateCartQuantityCommand struct {
	SessionID string
	VariantID string
	Quantity  int
}

// CheckoutService coordinates manual bank-transfer submissions.
type CheckoutService interface {
	// Quote returns the tax breakdown for the session's cart in its display
	// currency. The tax line is informational only.
	Quote(ctx context.Context, sessionID string) (CheckoutQuote, error)
	// Submit validates the shopper's details and payment proof, persists the
	// order header, and clears the cart. Replays of an in-flight session are
	// rejected.
	Submit(ctx context.Context, cmd SubmitOrderCommand) (Order, error)
}

// SubmitOrderCommand carries one checkout submission.
type SubmitOrderCommand struct {
	SessionID     string
	FullName      string
	Phone         string
	Email         string
	BenefitPayRef string
	Proof         ProofUpload
}

// ProofUpload is the payment proof image attached to a submission.
type ProofUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// OrderService serves the admin review queue.
type OrderService interface {
	ListOrders(ctx context.Context, filter OrderListFilter) ([]Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	// ProofDownloadURL mints a short-lived signed URL for viewing the
	// payment proof of an order.
	ProofDownloadURL(ctx context.Context, orderID string) (ProofDownload, error)
}

// OrderListFilter narrows the admin order listing.
type OrderListFilter struct {
	Status []OrderStatus
	Limit  int
}

// OrderStatusTransitionCommand approves or rejects a pending order.
type OrderStatusTransitionCommand struct {
	OrderID string
	Status  OrderStatus
	Notes   string
	ActorID string
}

// ProofDownload carries a signed payment proof URL and its expiry.
type ProofDownload struct {
	URL       string
	ExpiresAt time.Time
}

// SettingsService maintains the bank-transfer details shown at checkout.
type SettingsService interface {
	Settings(ctx context.Context) (StoreSettings, error)
	UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (StoreSettings, error)
}

// UpdateSettingsCommand replaces the bank-transfer settings.
type UpdateSettingsCommand struct {
	AccountName string
	IBAN        string
	ActorID     string
}

// SystemService exposes operational utilities consumed by health endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// Mailer delivers transactional mail. Failures are logged, never surfaced to
// the shopper.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order Order) error
}

// Order event types published on the order events topic.
const (
	OrderEventSubmitted     = "order.submitted"
	OrderEventStatusChanged = "order.status_changed"
)

// OrderEventMessage is the payload published for order lifecycle events.
type OrderEventMessage struct {
	EventType      string    `json:"eventType"`
	OrderID        string    `json:"orderId"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	Amount         float64   `json:"amount"`
	AmountSAR      float64   `json:"amountSar"`
	CurrencyCode   string    `json:"currency"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// OrderEventPublisher pushes order lifecycle events to the jobs topic.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

package domain

import (
	"time"
)

// PublishStatus enumerates catalog visibility states for products.
type PublishStatus string

const (
	// PublishStatusPublished indicates the product is visible to shoppers.
	PublishStatusPublished PublishStatus = "published"
	// PublishStatusDraft indicates the product is hidden from the storefront.
	PublishStatusDraft PublishStatus = "draft"
)

// StockStatus enumerates variant availability states.
type StockStatus string

const (
	// StockStatusInStock indicates the variant can be purchased.
	StockStatusInStock StockStatus = "in_stock"
	// StockStatusOutOfStock indicates the variant is listed but not purchasable.
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// Variant is a purchasable duration/price option under a product.
// Prices are denominated in the base currency (SAR).
type Variant struct {
	ID        string
	ProductID string
	Duration  string
	Price     float64
	SalePrice *float64
	Stock     StockStatus
}

// InStock reports whether the variant is currently purchasable.
func (v Variant) InStock() bool {
	return v.Stock == StockStatusInStock
}

// EffectivePrice returns the sale price when present, else the base price.
func (v Variant) EffectivePrice() float64 {
	if v.SalePrice != nil {
		return *v.SalePrice
	}
	return v.Price
}

// Product represents a subscription plan with its purchase options.
type Product struct {
	ID          string
	Name        string
	NameAr      string
	Description string
	ImageURL    string
	CategoryID  string
	Status      PublishStatus
	Variants    []Variant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PriceQuote carries the base and sale price of a product's cheapest variant.
type PriceQuote struct {
	Price     float64
	SalePrice *float64
}

// Category groups products for storefront navigation.
type Category struct {
	ID        string
	Name      string
	NameAr    string
	Slug      string
	IconURL   string
	SortOrder int
	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Currency describes one entry of the fixed conversion table.
// Rate is the multiplicative factor from the base currency (SAR).
type Currency struct {
	Code   string
	Symbol string
	Name   string
	NameAr string
	Rate   float64
}

// CartLine is a single (variant, quantity) entry with a denormalized
// product snapshot so the drawer renders without extra catalog reads.
type CartLine struct {
	VariantID   string
	ProductID   string
	ProductName string
	ImageURL    string
	Duration    string
	UnitPrice   float64
	Quantity    int
	AddedAt     time.Time
}

// LineTotal returns the line subtotal in the base currency.
func (l CartLine) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Cart aggregates the session's selected lines.
type Cart struct {
	SessionID string
	Lines     []CartLine
	UpdatedAt time.Time
}

// TotalItems returns the sum of line quantities.
func (c Cart) TotalItems() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice returns the cart subtotal in the base currency.
func (c Cart) TotalPrice() float64 {
	total := 0.0
	for _, l := range c.Lines {
		total += l.LineTotal()
	}
	return total
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits manual payment verification.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusApproved indicates an admin confirmed the bank transfer.
	OrderStatusApproved OrderStatus = "approved"
	// OrderStatusRejected indicates an admin rejected the submission.
	OrderStatusRejected OrderStatus = "rejected"
)

// Order is the header row for a placed BenefitPay order. Amounts are
// snapshotted at submission time and never recomputed afterwards.
type Order struct {
	ID              string
	FullName        string
	Phone           string
	Email           string
	PlanID          string
	PlanName        string
	Amount          float64
	AmountSAR       float64
	CurrencyCode    string
	CurrencySymbol  string
	BenefitPayRef   string
	PaymentProofURL string
	Status          OrderStatus
	Notes           string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem snapshots one cart line at submission time so historical
// orders stay legible after catalog edits. Prices are in SAR.
type OrderItem struct {
	OrderID     string
	ProductID   string
	VariantID   string
	ProductName string
	Duration    string
	Quantity    int
	UnitPrice   float64
	LineTotal   float64
}

// StoreSettings holds the bank-transfer details shown at checkout.
type StoreSettings struct {
	AccountName string
	IBAN        string
	UpdatedAt   time.Time
}

// CheckoutQuote presents the tax breakdown for a pending submission.
// Only the pre-tax subtotal is ever persisted on an order.
type CheckoutQuote struct {
	Subtotal       float64
	Tax            float64
	GrandTotal     float64
	CurrencyCode   string
	CurrencySymbol string
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency check.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

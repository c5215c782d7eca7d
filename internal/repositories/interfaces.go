package repositories

import (
	"context"
	"time"

	domain "github.com/a2h-store/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Catalog() CatalogRepository
	Orders() OrderRepository
	Settings() SettingsRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogRepository stores categories and products with their embedded variants.
type CatalogRepository interface {
	// ListCategories returns categories ordered by sort order. When
	// includeHidden is false, hidden categories are filtered out; stores
	// whose category documents predate the hidden flag degrade to an
	// unfiltered listing.
	ListCategories(ctx context.Context, includeHidden bool) ([]domain.Category, error)
	GetCategory(ctx context.Context, categoryID string) (domain.Category, error)
	UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	SetCategoryHidden(ctx context.Context, categoryID string, hidden bool, now time.Time) (domain.Category, error)

	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	// GetPublishedProduct returns a RepositoryError with IsNotFound when the
	// product is absent or not published.
	GetPublishedProduct(ctx context.Context, productID string) (domain.Product, error)
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID    string
	OnlyPublished bool
	Limit         int
}

// OrderRepository persists order headers with embedded item snapshots.
type OrderRepository interface {
	// Insert creates a new order header. Inserting an existing order ID
	// surfaces as a conflict, which callers treat as a replayed submission.
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	// List returns orders for the admin review queue: pending first, newest
	// first within each status group.
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
	// UpdateStatus transitions a pending order to approved or rejected
	// inside a transaction. Non-pending orders refuse the transition.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, notes string, now time.Time) (domain.Order, error)
}

// OrderListFilter narrows the admin order listing.
type OrderListFilter struct {
	Status []domain.OrderStatus
	Limit  int
}

// SettingsRepository stores the singleton bank-transfer settings document.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.StoreSettings, error)
	Save(ctx context.Context, settings domain.StoreSettings) (domain.StoreSettings, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

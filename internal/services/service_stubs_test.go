package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/a2h-store/api/internal/domain"
	"github.com/a2h-store/api/internal/repositories"
)

// stubRepoError satisfies repositories.RepositoryError for translation tests.
type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubCatalogRepo struct {
	listCategoriesFn    func(context.Context, bool) ([]domain.Category, error)
	getCategoryFn       func(context.Context, string) (domain.Category, error)
	upsertCategoryFn    func(context.Context, domain.Category) (domain.Category, error)
	deleteCategoryFn    func(context.Context, string) error
	setCategoryHiddenFn func(context.Context, string, bool, time.Time) (domain.Category, error)
	listProductsFn      func(context.Context, repositories.ProductFilter) ([]domain.Product, error)
	getProductFn        func(context.Context, string) (domain.Product, error)
	getPublishedFn      func(context.Context, string) (domain.Product, error)
	upsertProductFn     func(context.Context, domain.Product) (domain.Product, error)
	deleteProductFn     func(context.Context, string) error
}

func (s *stubCatalogRepo) ListCategories(ctx context.Context, includeHidden bool) ([]domain.Category, error) {
	if s.listCategoriesFn != nil {
		return s.listCategoriesFn(ctx, includeHidden)
	}
	return nil, nil
}

func (s *stubCatalogRepo) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	if s.getCategoryFn != nil {
		return s.getCategoryFn(ctx, categoryID)
	}
	return domain.Category{}, &stubRepoError{notFound: true}
}

func (s *stubCatalogRepo) UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	if s.upsertCategoryFn != nil {
		return s.upsertCategoryFn(ctx, category)
	}
	return category, nil
}

func (s *stubCatalogRepo) DeleteCategory(ctx context.Context, categoryID string) error {
	if s.deleteCategoryFn != nil {
		return s.deleteCategoryFn(ctx, categoryID)
	}
	return nil
}

func (s *stubCatalogRepo) SetCategoryHidden(ctx context.Context, categoryID string, hidden bool, now time.Time) (domain.Category, error) {
	if s.setCategoryHiddenFn != nil {
		return s.setCategoryHiddenFn(ctx, categoryID, hidden, now)
	}
	return domain.Category{}, &stubRepoError{notFound: true}
}

func (s *stubCatalogRepo) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	if s.listProductsFn != nil {
		return s.listProductsFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubCatalogRepo) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.getProductFn != nil {
		return s.getProductFn(ctx, productID)
	}
	return domain.Product{}, &stubRepoError{notFound: true}
}

func (s *stubCatalogRepo) GetPublishedProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.getPublishedFn != nil {
		return s.getPublishedFn(ctx, productID)
	}
	return domain.Product{}, &stubRepoError{notFound: true}
}

func (s *stubCatalogRepo) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.upsertProductFn != nil {
		return s.upsertProductFn(ctx, product)
	}
	return product, nil
}

func (s *stubCatalogRepo) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteProductFn != nil {
		return s.deleteProductFn(ctx, productID)
	}
	return nil
}

type stubOrderRepo struct {
	insertFn       func(context.Context, domain.Order) error
	findFn         func(context.Context, string) (domain.Order, error)
	listFn         func(context.Context, repositories.OrderListFilter) ([]domain.Order, error)
	updateStatusFn func(context.Context, string, domain.OrderStatus, string, time.Time) (domain.Order, error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, notes string, now time.Time) (domain.Order, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, orderID, status, notes, now)
	}
	return domain.Order{}, errors.New("not implemented")
}

type stubSettingsRepo struct {
	getFn  func(context.Context) (domain.StoreSettings, error)
	saveFn func(context.Context, domain.StoreSettings) (domain.StoreSettings, error)
}

func (s *stubSettingsRepo) Get(ctx context.Context) (domain.StoreSettings, error) {
	if s.getFn != nil {
		return s.getFn(ctx)
	}
	return domain.StoreSettings{}, &stubRepoError{notFound: true}
}

func (s *stubSettingsRepo) Save(ctx context.Context, settings domain.StoreSettings) (domain.StoreSettings, error) {
	if s.saveFn != nil {
		return s.saveFn(ctx, settings)
	}
	return settings, nil
}

func saleOf(v float64) *float64 { return &v }

// publishedTwoVariantProduct mirrors a typical catalog document: a Shahid VIP
// style plan with a monthly and a yearly option.
func publishedTwoVariantProduct() domain.Product {
	return domain.Product{
		ID:         "prod-1",
		Name:       "Shahid VIP",
		NameAr:     "شاهد VIP",
		ImageURL:   "https://cdn.example.com/shahid.png",
		CategoryID: "cat-streaming",
		Status:     domain.PublishStatusPublished,
		Variants: []domain.Variant{
			{ID: "var-month", ProductID: "prod-1", Duration: "1 Month", Price: 16.50, Stock: domain.StockStatusInStock},
			{ID: "var-year", ProductID: "prod-1", Duration: "12 Months", Price: 99, SalePrice: saleOf(71), Stock: domain.StockStatusInStock},
			{ID: "var-sold-out", ProductID: "prod-1", Duration: "6 Months", Price: 55, Stock: domain.StockStatusOutOfStock},
		},
	}
}

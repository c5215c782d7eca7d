package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/a2h-store/api/internal/domain"
	pfirestore "github.com/a2h-store/api/internal/platform/firestore"
	"github.com/a2h-store/api/internal/repositories"
)

const (
	categoriesCollection = "categories"
	productsCollection   = "products"
)

// CatalogRepository persists categories and products with embedded variants.
type CatalogRepository struct {
	categories *pfirestore.Collection[categoryDocument]
	products   *pfirestore.Collection[productDocument]

	// Stores migrated from earlier schema revisions may lack the hidden
	// flag (and its composite index) on category documents. The first
	// filtered listing checks for support and the result is cached for
	// the process lifetime.
	hiddenCheck sync.Once
	hiddenOK    bool
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository: firestore provider is required")
	}
	return &CatalogRepository{
		categories: pfirestore.NewCollection[categoryDocument](provider, categoriesCollection, nil, nil),
		products:   pfirestore.NewCollection[productDocument](provider, productsCollection, nil, nil),
	}, nil
}

// ListCategories returns categories ordered by sort order, filtering hidden
// entries unless includeHidden is set.
func (r *CatalogRepository) ListCategories(ctx context.Context, includeHidden bool) ([]domain.Category, error) {
	if r == nil || r.categories == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	if !includeHidden && r.supportsHiddenFilter(ctx) {
		docs, err := r.categories.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("hidden", "==", false).OrderBy("sortOrder", firestore.Asc)
		})
		if err == nil {
			return decodeCategoryDocuments(docs), nil
		}
		if !isMissingIndex(err) {
			return nil, err
		}
		// The check passed earlier but the index since disappeared; fall
		// through to the unfiltered listing.
	}

	docs, err := r.categories.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("sortOrder", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	categories := decodeCategoryDocuments(docs)
	if includeHidden {
		return categories, nil
	}
	visible := categories[:0]
	for _, c := range categories {
		if !c.Hidden {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (r *CatalogRepository) supportsHiddenFilter(ctx context.Context) bool {
	r.hiddenCheck.Do(func() {
		_, err := r.categories.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("hidden", "==", false).OrderBy("sortOrder", firestore.Asc).Limit(1)
		})
		r.hiddenOK = err == nil || !isMissingIndex(err)
	})
	return r.hiddenOK
}

// isMissingIndex reports whether the query failed because the backing
// composite index does not exist.
func isMissingIndex(err error) bool {
	if err == nil {
		return false
	}
	if status.Code(err) == codes.FailedPrecondition {
		return true
	}
	var repoErr *pfirestore.Error
	if errors.As(err, &repoErr) {
		return repoErr.IsConflict()
	}
	return false
}

// GetCategory fetches a single category by ID.
func (r *CatalogRepository) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	if r == nil || r.categories == nil {
		return domain.Category{}, errors.New("catalog repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return domain.Category{}, errors.New("catalog repository: category id is required")
	}
	doc, err := r.categories.Get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	return decodeCategoryDocument(doc.ID, doc.Data), nil
}

// UpsertCategory stores the category under its ID.
func (r *CatalogRepository) UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	if r == nil || r.categories == nil {
		return domain.Category{}, errors.New("catalog repository not initialised")
	}
	categoryID := strings.TrimSpace(category.ID)
	if categoryID == "" {
		return domain.Category{}, errors.New("catalog repository: category id is required")
	}
	if _, err := r.categories.Set(ctx, categoryID, encodeCategoryDocument(category)); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// DeleteCategory removes the category document.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, categoryID string) error {
	if r == nil || r.categories == nil {
		return errors.New("catalog repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return errors.New("catalog repository: category id is required")
	}
	return r.categories.Delete(ctx, categoryID)
}

// SetCategoryHidden toggles the storefront visibility flag for a category.
func (r *CatalogRepository) SetCategoryHidden(ctx context.Context, categoryID string, hidden bool, now time.Time) (domain.Category, error) {
	if r == nil || r.categories == nil {
		return domain.Category{}, errors.New("catalog repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return domain.Category{}, errors.New("catalog repository: category id is required")
	}
	updates := []firestore.Update{
		{Path: "hidden", Value: hidden},
		{Path: "updatedAt", Value: now.UTC()},
	}
	if _, err := r.categories.Update(ctx, categoryID, updates); err != nil {
		return domain.Category{}, err
	}
	return r.GetCategory(ctx, categoryID)
}

// ListProducts returns products honouring the filter, newest first.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	if r == nil || r.products == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	categoryID := strings.TrimSpace(filter.CategoryID)
	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.OnlyPublished {
			q = q.Where("status", "==", string(domain.PublishStatusPublished))
		}
		if categoryID != "" {
			q = q.Where("categoryId", "==", categoryID)
		}
		q = q.OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, decodeProductDocument(doc.ID, doc.Data))
	}
	return products, nil
}

// GetProduct fetches a product regardless of publication state.
func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("catalog repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("catalog repository: product id is required")
	}
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(doc.ID, doc.Data), nil
}

// GetPublishedProduct fetches a product and hides drafts behind a not-found error.
func (r *CatalogRepository) GetPublishedProduct(ctx context.Context, productID string) (domain.Product, error) {
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if product.Status != domain.PublishStatusPublished {
		return domain.Product{}, pfirestore.WrapError("products.get_published", status.Error(codes.NotFound, "product not published"))
	}
	return product, nil
}

// UpsertProduct stores the product and its embedded variants under its ID.
func (r *CatalogRepository) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("catalog repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return domain.Product{}, errors.New("catalog repository: product id is required")
	}
	if _, err := r.products.Set(ctx, productID, encodeProductDocument(product)); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// DeleteProduct removes the product document and its embedded variants.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, productID string) error {
	if r == nil || r.products == nil {
		return errors.New("catalog repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("catalog repository: product id is required")
	}
	return r.products.Delete(ctx, productID)
}

type categoryDocument struct {
	Name      string    `firestore:"name"`
	NameAr    string    `firestore:"nameAr"`
	Slug      string    `firestore:"slug"`
	IconURL   string    `firestore:"iconUrl"`
	SortOrder int       `firestore:"sortOrder"`
	Hidden    bool      `firestore:"hidden"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type productDocument struct {
	Name        string            `firestore:"name"`
	NameAr      string            `firestore:"nameAr"`
	Description string            `firestore:"description,omitempty"`
	ImageURL    string            `firestore:"imageUrl"`
	CategoryID  string            `firestore:"categoryId"`
	Status      string            `firestore:"status"`
	Variants    []variantDocument `firestore:"variants"`
	CreatedAt   time.Time         `firestore:"createdAt"`
	UpdatedAt   time.Time         `firestore:"updatedAt"`
}

type variantDocument struct {
	ID        string   `firestore:"id"`
	Duration  string   `firestore:"duration"`
	Price     float64  `firestore:"price"`
	SalePrice *float64 `firestore:"salePrice,omitempty"`
	Stock     string   `firestore:"stock"`
}

func encodeCategoryDocument(category domain.Category) categoryDocument {
	return categoryDocument{
		Name:      category.Name,
		NameAr:    category.NameAr,
		Slug:      category.Slug,
		IconURL:   category.IconURL,
		SortOrder: category.SortOrder,
		Hidden:    category.Hidden,
		CreatedAt: category.CreatedAt.UTC(),
		UpdatedAt: category.UpdatedAt.UTC(),
	}
}

func decodeCategoryDocument(id string, doc categoryDocument) domain.Category {
	return domain.Category{
		ID:        id,
		Name:      doc.Name,
		NameAr:    doc.NameAr,
		Slug:      doc.Slug,
		IconURL:   doc.IconURL,
		SortOrder: doc.SortOrder,
		Hidden:    doc.Hidden,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func decodeCategoryDocuments(docs []pfirestore.Document[categoryDocument]) []domain.Category {
	categories := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, decodeCategoryDocument(doc.ID, doc.Data))
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].SortOrder < categories[j].SortOrder
	})
	return categories
}

func encodeProductDocument(product domain.Product) productDocument {
	variants := make([]variantDocument, 0, len(product.Variants))
	for _, v := range product.Variants {
		variants = append(variants, variantDocument{
			ID:        v.ID,
			Duration:  v.Duration,
			Price:     v.Price,
			SalePrice: v.SalePrice,
			Stock:     string(v.Stock),
		})
	}
	return productDocument{
		Name:        product.Name,
		NameAr:      product.NameAr,
		Description: product.Description,
		ImageURL:    product.ImageURL,
		CategoryID:  product.CategoryID,
		Status:      string(product.Status),
		Variants:    variants,
		CreatedAt:   product.CreatedAt.UTC(),
		UpdatedAt:   product.UpdatedAt.UTC(),
	}
}

func decodeProductDocument(id string, doc productDocument) domain.Product {
	variants := make([]domain.Variant, 0, len(doc.Variants))
	for _, v := range doc.Variants {
		variants = append(variants, domain.Variant{
			ID:        v.ID,
			ProductID: id,
			Duration:  v.Duration,
			Price:     v.Price,
			SalePrice: v.SalePrice,
			Stock:     domain.StockStatus(v.Stock),
		})
	}
	return domain.Product{
		ID:          id,
		Name:        doc.Name,
		NameAr:      doc.NameAr,
		Description: doc.Description,
		ImageURL:    doc.ImageURL,
		CategoryID:  doc.CategoryID,
		Status:      domain.PublishStatus(doc.Status),
		Variants:    variants,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

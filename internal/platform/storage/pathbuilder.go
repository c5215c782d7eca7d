package storage

import (
	"fmt"
	"strings"
	"sync"
)

// AssetPurpose captures high-level intent for storage layout decisions.
type AssetPurpose string

const (
	PurposePaymentProof AssetPurpose = "payment-proof"
	PurposeProductImage AssetPurpose = "product-image"
	PurposeCategoryIcon AssetPurpose = "category-icon"
)

// PathParams provide required identifiers to compose storage object keys.
type PathParams struct {
	OrderID    string
	ProductID  string
	CategoryID string
	// UploadedAtMillis disambiguates repeated uploads for the same owner and
	// keeps the original file name out of the object key.
	UploadedAtMillis int64
	Extension        string
}

// PathBuilder composes the object path for a given asset purpose.
type PathBuilder func(PathParams) (string, error)

var (
	pathBuilders = map[AssetPurpose]PathBuilder{
		PurposePaymentProof: buildPaymentProofPath,
		PurposeProductImage: buildProductImagePath,
		PurposeCategoryIcon: buildCategoryIconPath,
	}
	pathBuildersMu sync.RWMutex
)

// RegisterPathBuilder overrides or registers a builder for a specific purpose.
func RegisterPathBuilder(purpose AssetPurpose, builder PathBuilder) {
	pathBuildersMu.Lock()
	defer pathBuildersMu.Unlock()
	if builder == nil {
		delete(pathBuilders, purpose)
		return
	}
	pathBuilders[purpose] = builder
}

// BuildObjectPath resolves the storage object path for the given purpose.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	pathBuildersMu.RLock()
	builder, ok := pathBuilders[purpose]
	pathBuildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}
	return builder(params)
}

func buildPaymentProofPath(params PathParams) (string, error) {
	orderID, err := validateSegment("orderID", params.OrderID)
	if err != nil {
		return "", err
	}
	if params.UploadedAtMillis <= 0 {
		return "", fmt.Errorf("storage: uploadedAtMillis is required")
	}
	ext, err := validateExtension(params.Extension)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("payment-proofs/%s-%d.%s", orderID, params.UploadedAtMillis, ext), nil
}

func buildProductImagePath(params PathParams) (string, error) {
	productID, err := validateSegment("productID", params.ProductID)
	if err != nil {
		return "", err
	}
	if params.UploadedAtMillis <= 0 {
		return "", fmt.Errorf("storage: uploadedAtMillis is required")
	}
	ext, err := validateExtension(params.Extension)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products/%s/%d.%s", productID, params.UploadedAtMillis, ext), nil
}

func buildCategoryIconPath(params PathParams) (string, error) {
	categoryID, err := validateSegment("categoryID", params.CategoryID)
	if err != nil {
		return "", err
	}
	if params.UploadedAtMillis <= 0 {
		return "", fmt.Errorf("storage: uploadedAtMillis is required")
	}
	ext, err := validateExtension(params.Extension)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("categories/%s/%d.%s", categoryID, params.UploadedAtMillis, ext), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateExtension(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), ".")))
	if value == "" {
		return "", fmt.Errorf("storage: extension is required")
	}
	if strings.ContainsAny(value, "/\\.") {
		return "", fmt.Errorf("storage: extension contains invalid characters")
	}
	return value, nil
}

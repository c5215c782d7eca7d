package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/a2h-store/api/internal/platform/firestore"
	"github.com/a2h-store/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry interface for dependency injection.
type Registry struct {
	provider *pfirestore.Provider
	catalog  *CatalogRepository
	orders   *OrderRepository
	settings *SettingsRepository
	health   repositories.HealthRepository
}

// NewRegistry constructs the repository registry on top of a shared provider.
// The health repository is optional; pass nil to disable dependency checks.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	catalog, err := NewCatalogRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	settings, err := NewSettingsRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		catalog:  catalog,
		orders:   orders,
		settings: settings,
		health:   health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Catalog implements repositories.Registry.
func (r *Registry) Catalog() repositories.CatalogRepository { return r.catalog }

// Orders implements repositories.Registry.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Settings implements repositories.Registry.
func (r *Registry) Settings() repositories.SettingsRepository { return r.settings }

// Health implements repositories.Registry.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn within a Firestore transaction boundary.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		return fn(ctx)
	})
}

var _ repositories.Registry = (*Registry)(nil)

package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/a2h-store/api/internal/platform/config"
	"github.com/a2h-store/api/internal/platform/prefs"
	"github.com/a2h-store/api/internal/platform/storage"
	"github.com/a2h-store/api/internal/repositories"
	"github.com/a2h-store/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog  services.CatalogService
	Currency services.CurrencyService
	Cart     services.CartService
	Checkout services.CheckoutService
	Orders   services.OrderService
	Settings services.SettingsService
	System   services.SystemService
}

// ContainerDeps carries the external collaborators NewContainer cannot build
// itself. Registry is required; everything else degrades gracefully when
// absent (no mail, no events, no proof signing).
type ContainerDeps struct {
	Registry repositories.Registry
	Prefs    prefs.Store
	Proofs   services.ProofStore
	Signer   services.ProofURLSigner
	Mailer   services.Mailer
	Events   services.OrderEventPublisher
	Clock    func() time.Time
	IDGen    func() string
	Logger   func(ctx context.Context, event string, fields map[string]any)
	Build    services.BuildInfo
}

// Container wires repositories, services, and supporting infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Prefs        prefs.Store
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// real implementations, while tests can supply in-memory stores.
func NewContainer(ctx context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("di: repositories registry is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	store := deps.Prefs
	if store == nil {
		var err error
		store, err = buildPrefsStore(cfg.Prefs)
		if err != nil {
			return nil, err
		}
	}

	svc, err := buildServices(cfg, deps, store, clock, idGen)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Prefs:        store,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildPrefsStore(cfg config.PrefsConfig) (prefs.Store, error) {
	if cfg.Dir == "" {
		return prefs.NewMemoryStore(), nil
	}
	store, err := prefs.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("di: build prefs store: %w", err)
	}
	return store, nil
}

func buildServices(cfg config.Config, deps ContainerDeps, store prefs.Store, clock func() time.Time, idGen func() string) (Services, error) {
	var svc Services
	reg := deps.Registry

	currencySvc, err := services.NewCurrencyService(services.CurrencyServiceDeps{
		Prefs:  store,
		Logger: deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build currency service: %w", err)
	}
	svc.Currency = currencySvc

	if catalogRepo := reg.Catalog(); catalogRepo != nil {
		catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
			Catalog: catalogRepo,
			Prefs:   store,
			IDGen:   idGen,
			Clock:   clock,
			Logger:  deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("di: build catalog service: %w", err)
		}
		svc.Catalog = catalogSvc

		cartSvc, err := services.NewCartService(services.CartServiceDeps{
			Prefs:   store,
			Catalog: catalogRepo,
			Clock:   clock,
			Logger:  deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("di: build cart service: %w", err)
		}
		svc.Cart = cartSvc
	}

	ordersRepo := reg.Orders()
	if ordersRepo != nil && svc.Cart != nil && deps.Proofs != nil {
		checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
			Orders:        ordersRepo,
			Catalog:       reg.Catalog(),
			Cart:          svc.Cart,
			Currency:      svc.Currency,
			Proofs:        deps.Proofs,
			Mailer:        deps.Mailer,
			Events:        deps.Events,
			Clock:         clock,
			IDGen:         idGen,
			Logger:        deps.Logger,
			ProofMaxBytes: cfg.Checkout.ProofMaxBytes,
		})
		if err != nil {
			return Services{}, fmt.Errorf("di: build checkout service: %w", err)
		}
		svc.Checkout = checkoutSvc
	}

	if ordersRepo != nil {
		orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
			Orders:      ordersRepo,
			Signer:      deps.Signer,
			ProofBucket: cfg.Storage.ProofsBucket,
			Events:      deps.Events,
			Clock:       clock,
			Logger:      deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("di: build order service: %w", err)
		}
		svc.Orders = orderSvc
	}

	if settingsRepo := reg.Settings(); settingsRepo != nil {
		settingsSvc, err := services.NewSettingsService(services.SettingsServiceDeps{
			Settings: settingsRepo,
			Clock:    clock,
			Logger:   deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("di: build settings service: %w", err)
		}
		svc.Settings = settingsSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
			Build:            deps.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("di: build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

// ProofUploader adapts the Cloud Storage uploader to the checkout proof store,
// returning the object's public-style URL for persistence on the order.
type ProofUploader struct {
	uploader *storage.Uploader
	bucket   string
}

// NewProofUploader wires an uploader against the payment proofs bucket.
func NewProofUploader(uploader *storage.Uploader, bucket string) (*ProofUploader, error) {
	if uploader == nil {
		return nil, errors.New("di: storage uploader is required")
	}
	if bucket == "" {
		return nil, errors.New("di: proofs bucket is required")
	}
	return &ProofUploader{uploader: uploader, bucket: bucket}, nil
}

// Store uploads the proof bytes and returns the stored object's URL.
func (p *ProofUploader) Store(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	if err := p.uploader.Upload(ctx, p.bucket, objectPath, contentType, data); err != nil {
		return "", err
	}
	return storage.PublicURL(p.bucket, objectPath), nil
}

var _ services.ProofStore = (*ProofUploader)(nil)

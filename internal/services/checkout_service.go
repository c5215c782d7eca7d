package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/a2h-store/api/internal/domain"
	"github.com/a2h-store/api/internal/platform/storage"
	"github.com/a2h-store/api/internal/repositories"
)

const (
	// TaxRate is the VAT rate shown on checkout quotes. The tax line is
	// informational; only pre-tax amounts are persisted on orders.
	TaxRate = 0.15

	defaultProofMaxBytes = 5 << 20
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid submission fields.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutEmptyCart indicates the session cart has no lines to submit.
	ErrCheckoutEmptyCart = errors.New("checkout: empty cart")
	// ErrCheckoutProofTooLarge indicates the payment proof exceeds the size limit.
	ErrCheckoutProofTooLarge = errors.New("checkout: proof too large")
	// ErrCheckoutProofNotImage indicates the payment proof is not an image.
	ErrCheckoutProofNotImage = errors.New("checkout: proof must be an image")
	// ErrCheckoutInFlight indicates another submission for this session is still running.
	ErrCheckoutInFlight = errors.New("checkout: submission already in progress")
	// ErrCheckoutConflict indicates the order was already recorded.
	ErrCheckoutConflict = errors.New("checkout: conflict")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// Shape check only: one local part, one domain with a dot, no whitespace.
// Deliverability is confirmed by the transactional mail later.
var emailShapePattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ProofStore persists payment proof images and returns their public URL.
type ProofStore interface {
	Store(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Orders        repositories.OrderRepository
	Catalog       repositories.CatalogRepository
	Cart          CartService
	Currency      CurrencyService
	Proofs        ProofStore
	Mailer        Mailer
	Events        OrderEventPublisher
	Clock         func() time.Time
	IDGen         func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
	Meter         metric.Meter
	ProofMaxBytes int64
}

type checkoutService struct {
	orders   repositories.OrderRepository
	catalog  repositories.CatalogRepository
	cart     CartService
	currency CurrencyService
	proofs   ProofStore
	mailer   Mailer
	events   OrderEventPublisher

	now      func() time.Time
	newID    func() string
	logger   func(ctx context.Context, event string, fields map[string]any)
	validate *validator.Validate
	sanitize *bluemonday.Policy

	proofMaxBytes int64

	// One submission per session at a time. The order ID doubles as the
	// idempotency key against replays that slip past this guard.
	inFlight sync.Map

	submittedCounter metric.Int64Counter
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("checkout service: catalog repository is required")
	}
	if deps.Cart == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Currency == nil {
		return nil, errors.New("checkout service: currency service is required")
	}
	if deps.Proofs == nil {
		return nil, errors.New("checkout service: proof store is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	maxBytes := deps.ProofMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultProofMaxBytes
	}

	validate := validator.New()
	if err := validate.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailShapePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter("github.com/a2h-store/api/internal/services")
	}
	submittedCounter, err := meter.Int64Counter(
		"checkout.orders.submitted",
		metric.WithDescription("Orders submitted through manual bank-transfer checkout."),
	)
	if err != nil {
		return nil, err
	}

	return &checkoutService{
		orders:   deps.Orders,
		catalog:  deps.Catalog,
		cart:     deps.Cart,
		currency: deps.Currency,
		proofs:   deps.Proofs,
		mailer:   deps.Mailer,
		events:   deps.Events,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:            idGen,
		logger:           logger,
		validate:         validate,
		sanitize:         bluemonday.StrictPolicy(),
		proofMaxBytes:    maxBytes,
		submittedCounter: submittedCounter,
	}, nil
}

// Quote returns the session cart's tax breakdown in its display currency.
func (s *checkoutService) Quote(ctx context.Context, sessionID string) (CheckoutQuote, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return CheckoutQuote{}, ErrCheckoutInvalidInput
	}

	cart, err := s.cart.GetCart(ctx, sessionID)
	if err != nil {
		return CheckoutQuote{}, s.translateCartError(err)
	}
	if len(cart.Lines) == 0 {
		return CheckoutQuote{}, ErrCheckoutEmptyCart
	}

	currency := s.currency.CurrentCurrency(ctx, sessionID)
	subtotal := s.currency.Convert(cart.TotalPrice(), currency.Code)
	tax := roundMoney(subtotal * TaxRate)

	return CheckoutQuote{
		Subtotal:       subtotal,
		Tax:            tax,
		GrandTotal:     roundMoney(subtotal + tax),
		CurrencyCode:   currency.Code,
		CurrencySymbol: currency.Symbol,
	}, nil
}

type submitOrderInput struct {
	FullName      string `validate:"required,min=2,max=100"`
	Phone         string `validate:"required,min=7,max=20"`
	Email         string `validate:"required,max=254,emailshape"`
	BenefitPayRef string `validate:"max=64"`
}

// Submit validates the shopper's details and payment proof, reprices the cart
// from current catalog data, persists the order header with its items, and
// clears the cart.
func (s *checkoutService) Submit(ctx context.Context, cmd SubmitOrderCommand) (Order, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return Order{}, ErrCheckoutInvalidInput
	}

	if _, busy := s.inFlight.LoadOrStore(sessionID, struct{}{}); busy {
		return Order{}, ErrCheckoutInFlight
	}
	defer s.inFlight.Delete(sessionID)

	input := submitOrderInput{
		FullName:      s.sanitize.Sanitize(strings.TrimSpace(cmd.FullName)),
		Phone:         strings.TrimSpace(cmd.Phone),
		Email:         strings.TrimSpace(cmd.Email),
		BenefitPayRef: s.sanitize.Sanitize(strings.TrimSpace(cmd.BenefitPayRef)),
	}
	if err := s.validate.Struct(input); err != nil {
		return Order{}, ErrCheckoutInvalidInput
	}

	proofType, err := s.checkProof(cmd.Proof)
	if err != nil {
		return Order{}, err
	}

	cart, err := s.cart.GetCart(ctx, sessionID)
	if err != nil {
		return Order{}, s.translateCartError(err)
	}
	if len(cart.Lines) == 0 {
		return Order{}, ErrCheckoutEmptyCart
	}

	now := s.now()
	orderID := s.newID()
	currency := s.currency.CurrentCurrency(ctx, sessionID)
	items, totalSAR, err := s.resolveOrderItems(ctx, orderID, cart)
	if err != nil {
		return Order{}, err
	}
	amount := s.currency.Convert(totalSAR, currency.Code)

	objectPath, err := storage.BuildObjectPath(storage.PurposePaymentProof, storage.PathParams{
		OrderID:          orderID,
		UploadedAtMillis: now.UnixMilli(),
		Extension:        proofType.Extension(),
	})
	if err != nil {
		return Order{}, ErrCheckoutInvalidInput
	}

	proofURL, err := s.proofs.Store(ctx, objectPath, proofType.String(), cmd.Proof.Data)
	if err != nil {
		s.logger(ctx, "checkout.proof_upload_failed", map[string]any{
			"orderID": orderID,
			"error":   err.Error(),
		})
		return Order{}, ErrCheckoutUnavailable
	}

	order := domain.Order{
		ID:              orderID,
		FullName:        input.FullName,
		Phone:           input.Phone,
		Email:           input.Email,
		PlanID:          items[0].VariantID,
		PlanName:        items[0].ProductName,
		Amount:          amount,
		AmountSAR:       totalSAR,
		CurrencyCode:    currency.Code,
		CurrencySymbol:  currency.Symbol,
		BenefitPayRef:   input.BenefitPayRef,
		PaymentProofURL: proofURL,
		Status:          domain.OrderStatusPending,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		if code, ok := repositories.OrderErrorCodeOf(err); ok && code == repositories.OrderErrorDuplicate {
			return Order{}, ErrCheckoutConflict
		}
		s.logger(ctx, "checkout.order_insert_failed", map[string]any{
			"orderID": orderID,
			"error":   err.Error(),
		})
		return Order{}, ErrCheckoutUnavailable
	}

	// The order header is durable from here on. Cart cleanup, confirmation
	// mail, and the event publish are best effort.
	if err := s.cart.ClearCart(ctx, sessionID); err != nil {
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{
			"orderID": orderID,
			"error":   err.Error(),
		})
	}

	if s.mailer != nil {
		if err := s.mailer.SendOrderConfirmation(ctx, order); err != nil {
			s.logger(ctx, "checkout.confirmation_mail_failed", map[string]any{
				"orderID": orderID,
				"error":   err.Error(),
			})
		}
	}

	if s.events != nil {
		if _, err := s.events.PublishOrderEvent(ctx, OrderEventMessage{
			EventType:    OrderEventSubmitted,
			OrderID:      orderID,
			Status:       string(order.Status),
			Amount:       order.Amount,
			AmountSAR:    order.AmountSAR,
			CurrencyCode: order.CurrencyCode,
			OccurredAt:   now,
		}); err != nil {
			s.logger(ctx, "checkout.event_publish_failed", map[string]any{
				"orderID": orderID,
				"error":   err.Error(),
			})
		}
	}

	s.submittedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("currency", order.CurrencyCode),
	))

	return order, nil
}

// checkProof validates the size limit and sniffs the actual content type
// rather than trusting the multipart header.
func (s *checkoutService) checkProof(proof ProofUpload) (*mimetype.MIME, error) {
	if len(proof.Data) == 0 {
		return nil, ErrCheckoutInvalidInput
	}
	if int64(len(proof.Data)) > s.proofMaxBytes {
		return nil, ErrCheckoutProofTooLarge
	}

	detected := mimetype.Detect(proof.Data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, ErrCheckoutProofNotImage
	}
	return detected, nil
}

func (s *checkoutService) translateCartError(err error) error {
	switch {
	case errors.Is(err, ErrCartInvalidInput):
		return ErrCheckoutInvalidInput
	case err != nil:
		return ErrCheckoutUnavailable
	default:
		return nil
	}
}

// resolveOrderItems reprices every cart line from catalog data at submission
// time. Prices captured when a line was added are display snapshots; the
// amount the shopper owes comes from the variant as it stands now.
func (s *checkoutService) resolveOrderItems(ctx context.Context, orderID string, cart Cart) ([]OrderItem, float64, error) {
	items := make([]OrderItem, 0, len(cart.Lines))
	total := 0.0
	for _, line := range cart.Lines {
		product, err := s.catalog.GetPublishedProduct(ctx, line.ProductID)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				return nil, 0, ErrCheckoutInvalidInput
			}
			s.logger(ctx, "checkout.variant_resolve_failed", map[string]any{
				"orderID":   orderID,
				"productID": line.ProductID,
				"error":     err.Error(),
			})
			return nil, 0, ErrCheckoutUnavailable
		}
		variant, ok := findVariant(product, line.VariantID)
		if !ok {
			return nil, 0, ErrCheckoutInvalidInput
		}

		unitPrice := variant.EffectivePrice()
		lineTotal := roundMoney(unitPrice * float64(line.Quantity))
		total += lineTotal
		items = append(items, OrderItem{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: product.Name,
			Duration:    variant.Duration,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
		})
	}
	return items, roundMoney(total), nil
}

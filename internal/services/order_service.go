package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domain "github.com/a2h-store/api/internal/domain"
	"github.com/a2h-store/api/internal/platform/storage"
	"github.com/a2h-store/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidTransition indicates the order is no longer pending
	// and cannot be approved or rejected.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderNoProof indicates the order carries no payment proof object.
	ErrOrderNoProof = errors.New("order: no payment proof")
	// ErrOrderUnavailable wraps infrastructure failures.
	ErrOrderUnavailable = errors.New("order: temporarily unavailable")
)

const (
	defaultOrderListLimit = 50
	maxOrderListLimit     = 200
	maxOrderNotesLength   = 500

	proofDownloadExpiry = 10 * time.Minute
)

// ProofURLSigner mints signed download URLs for payment proof objects.
type ProofURLSigner interface {
	SignedDownloadURL(ctx context.Context, bucket, object string, opts storage.DownloadOptions) (storage.SignedURLResult, error)
}

// OrderServiceDeps wires the admin order service dependencies.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Signer ProofURLSigner
	// ProofBucket is the GCS bucket holding payment proof uploads.
	ProofBucket string
	Events      OrderEventPublisher
	Clock       func() time.Time
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	signer      ProofURLSigner
	proofBucket string
	events      OrderEventPublisher
	clock       func() time.Time
	logger      func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderService constructs the admin-facing order review service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order: orders repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		orders:      deps.Orders,
		signer:      deps.Signer,
		proofBucket: strings.TrimSpace(deps.ProofBucket),
		events:      deps.Events,
		clock:       clock,
		logger:      logger,
	}, nil
}

var _ OrderService = (*orderService)(nil)

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultOrderListLimit
	}
	if limit > maxOrderListLimit {
		limit = maxOrderListLimit
	}
	for _, st := range filter.Status {
		if !validOrderStatus(st) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, st)
		}
	}
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{
		Status: filter.Status,
		Limit:  limit,
	})
	if err != nil {
		return nil, s.translate(ctx, "orders.list_failed", err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translate(ctx, "orders.get_failed", err)
	}
	return order, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.Status != domain.OrderStatusApproved && cmd.Status != domain.OrderStatusRejected {
		return Order{}, fmt.Errorf("%w: target status must be approved or rejected", ErrOrderInvalidInput)
	}
	notes := strings.TrimSpace(cmd.Notes)
	if len(notes) > maxOrderNotesLength {
		return Order{}, fmt.Errorf("%w: notes exceed %d characters", ErrOrderInvalidInput, maxOrderNotesLength)
	}
	if cmd.Status == domain.OrderStatusRejected && notes == "" {
		return Order{}, fmt.Errorf("%w: rejection requires a note", ErrOrderInvalidInput)
	}

	now := s.clock().UTC()
	order, err := s.orders.UpdateStatus(ctx, orderID, cmd.Status, notes, now)
	if err != nil {
		return Order{}, s.translate(ctx, "orders.transition_failed", err)
	}

	s.logger(ctx, "orders.status_changed", map[string]any{
		"order_id": order.ID,
		"status":   string(order.Status),
		"actor_id": cmd.ActorID,
	})
	s.publishStatusChanged(ctx, order)
	return order, nil
}

func (s *orderService) ProofDownloadURL(ctx context.Context, orderID string) (ProofDownload, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return ProofDownload{}, err
	}
	if strings.TrimSpace(order.PaymentProofURL) == "" {
		return ProofDownload{}, ErrOrderNoProof
	}
	if s.signer == nil || s.proofBucket == "" {
		return ProofDownload{}, fmt.Errorf("%w: proof signer not configured", ErrOrderUnavailable)
	}
	object, err := proofObjectPath(order.PaymentProofURL, s.proofBucket)
	if err != nil {
		s.logger(ctx, "orders.proof_url_unparseable", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return ProofDownload{}, ErrOrderNoProof
	}
	result, err := s.signer.SignedDownloadURL(ctx, s.proofBucket, object, storage.DownloadOptions{
		ExpiresIn:   proofDownloadExpiry,
		Disposition: "inline",
	})
	if err != nil {
		s.logger(ctx, "orders.proof_sign_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return ProofDownload{}, ErrOrderUnavailable
	}
	return ProofDownload{URL: result.URL, ExpiresAt: result.ExpiresAt}, nil
}

func (s *orderService) publishStatusChanged(ctx context.Context, order domain.Order) {
	if s.events == nil {
		return
	}
	msg := OrderEventMessage{
		EventType:      OrderEventStatusChanged,
		OrderID:        order.ID,
		Status:         string(order.Status),
		PreviousStatus: string(domain.OrderStatusPending),
		Amount:         order.Amount,
		AmountSAR:      order.AmountSAR,
		CurrencyCode:   order.CurrencyCode,
		OccurredAt:     s.clock().UTC(),
	}
	if _, err := s.events.PublishOrderEvent(ctx, msg); err != nil {
		s.logger(ctx, "orders.event_publish_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func (s *orderService) translate(ctx context.Context, event string, err error) error {
	if code, ok := repositories.OrderErrorCodeOf(err); ok {
		switch code {
		case repositories.OrderErrorNotFound:
			return ErrOrderNotFound
		case repositories.OrderErrorInvalidTransition:
			return ErrOrderInvalidTransition
		}
	}
	s.logger(ctx, event, map[string]any{"error": err.Error()})
	return ErrOrderUnavailable
}

func validOrderStatus(st domain.OrderStatus) bool {
	switch st {
	case domain.OrderStatusPending, domain.OrderStatusApproved, domain.OrderStatusRejected:
		return true
	}
	return false
}

// proofObjectPath recovers the object path from a public-style GCS URL
// such as https://storage.googleapis.com/<bucket>/<object>. Only URLs
// pointing into the configured proof bucket are accepted.
func proofObjectPath(rawURL, bucket string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse proof url: %w", err)
	}
	path := strings.TrimPrefix(u.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] != bucket || parts[1] == "" {
		return "", fmt.Errorf("proof url %q is outside bucket %q", rawURL, bucket)
	}
	return parts[1], nil
}

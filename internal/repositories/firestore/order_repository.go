package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/a2h-store/api/internal/domain"
	pfirestore "github.com/a2h-store/api/internal/platform/firestore"
	"github.com/a2h-store/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists order headers with embedded item snapshots.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	base := pfirestore.NewCollection[orderDocument](provider, ordersCollection, nil, decodeOrderSnapshot)
	return &OrderRepository{provider: provider, base: base}, nil
}

// Insert creates the order header. The order ID doubles as the submission
// idempotency key, so a replayed insert surfaces as a duplicate.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}

	if _, err := r.base.Create(ctx, orderID, encodeOrderDocument(order)); err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			return repositories.NewOrderError(repositories.OrderErrorDuplicate, "order "+orderID+" already exists", err)
		}
		return err
	}
	return nil
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(doc.ID, doc.Data), nil
}

// List returns orders for the admin queue: pending first, newest first
// within each status group.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}

	statusFilters := make([]string, 0, len(filter.Status))
	for _, s := range filter.Status {
		if v := strings.TrimSpace(string(s)); v != "" {
			statusFilters = append(statusFilters, v)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			q = q.Where("status", "in", statusFilters)
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

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrderDocument(doc.ID, doc.Data))
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orderStatusRank(orders[i].Status) < orderStatusRank(orders[j].Status)
	})
	return orders, nil
}

// Pending sorts ahead of reviewed orders; reviewed statuses keep their
// relative created-at ordering.
func orderStatusRank(status domain.OrderStatus) int {
	if status == domain.OrderStatusPending {
		return 0
	}
	return 1
}

// UpdateStatus transitions a pending order inside a transaction. Orders
// already reviewed refuse further transitions.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus, notes string, now time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	if newStatus != domain.OrderStatusApproved && newStatus != domain.OrderStatusRejected {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorInvalidTransition, "status must be approved or rejected", nil)
	}

	now = now.UTC()
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}

		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, "order "+orderID+" not found", err)
			}
			return err
		}

		current, _ := snap.DataAt("status")
		if currentStatus, _ := current.(string); currentStatus != string(domain.OrderStatusPending) {
			return repositories.NewOrderError(repositories.OrderErrorInvalidTransition, "order "+orderID+" is not pending", nil)
		}

		updates := []firestore.Update{
			{Path: "status", Value: string(newStatus)},
			{Path: "updatedAt", Value: now},
		}
		if notes = strings.TrimSpace(notes); notes != "" {
			updates = append(updates, firestore.Update{Path: "notes", Value: notes})
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return domain.Order{}, err
	}

	return r.FindByID(ctx, orderID)
}

type orderDocument struct {
	FullName        string              `firestore:"fullName"`
	Phone           string              `firestore:"phone"`
	Email           string              `firestore:"email"`
	PlanID          string              `firestore:"planId"`
	PlanName        string              `firestore:"planName"`
	Amount          float64             `firestore:"amount"`
	AmountSAR       float64             `firestore:"amountSar"`
	CurrencyCode    string              `firestore:"currency"`
	CurrencySymbol  string              `firestore:"currencySymbol"`
	BenefitPayRef   string              `firestore:"benefitpayRef,omitempty"`
	PaymentProofURL string              `firestore:"paymentProofUrl,omitempty"`
	Status          string              `firestore:"status"`
	Notes           string              `firestore:"notes,omitempty"`
	Items           []orderItemDocument `firestore:"items"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID   string  `firestore:"productId" json:"productId"`
	VariantID   string  `firestore:"variantId" json:"variantId"`
	ProductName string  `firestore:"productName" json:"productName"`
	Duration    string  `firestore:"duration" json:"duration"`
	Quantity    int     `firestore:"quantity" json:"quantity"`
	UnitPrice   float64 `firestore:"unitPrice" json:"unitPrice"`
	LineTotal   float64 `firestore:"lineTotal" json:"lineTotal"`
}

// decodeOrderSnapshot tolerates legacy documents whose items field was
// written as a JSON string rather than an array.
func decodeOrderSnapshot(_ context.Context, snap *firestore.DocumentSnapshot) (orderDocument, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err == nil {
		return doc, nil
	}

	data := snap.Data()
	rawItems, hasStringItems := data["items"].(string)
	if !hasStringItems {
		// Re-run the native decode so the caller sees the original error.
		err := snap.DataTo(&doc)
		return doc, err
	}

	delete(data, "items")
	if err := decodeMapInto(data, &doc); err != nil {
		return orderDocument{}, err
	}
	if strings.TrimSpace(rawItems) != "" {
		if err := json.Unmarshal([]byte(rawItems), &doc.Items); err != nil {
			// Unparseable legacy payloads degrade to an empty item list so
			// the admin queue still renders the order header.
			doc.Items = nil
		}
	}
	return doc, nil
}

func decodeMapInto(data map[string]any, doc *orderDocument) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	type orderDocumentJSON struct {
		FullName        string              `json:"fullName"`
		Phone           string              `json:"phone"`
		Email           string              `json:"email"`
		PlanID          string              `json:"planId"`
		PlanName        string              `json:"planName"`
		Amount          float64             `json:"amount"`
		AmountSAR       float64             `json:"amountSar"`
		CurrencyCode    string              `json:"currency"`
		CurrencySymbol  string              `json:"currencySymbol"`
		BenefitPayRef   string              `json:"benefitpayRef"`
		PaymentProofURL string              `json:"paymentProofUrl"`
		Status          string              `json:"status"`
		Notes           string              `json:"notes"`
		Items           []orderItemDocument `json:"items"`
		CreatedAt       time.Time           `json:"createdAt"`
		UpdatedAt       time.Time           `json:"updatedAt"`
	}
	var decoded orderDocumentJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*doc = orderDocument{
		FullName:        decoded.FullName,
		Phone:           decoded.Phone,
		Email:           decoded.Email,
		PlanID:          decoded.PlanID,
		PlanName:        decoded.PlanName,
		Amount:          decoded.Amount,
		AmountSAR:       decoded.AmountSAR,
		CurrencyCode:    decoded.CurrencyCode,
		CurrencySymbol:  decoded.CurrencySymbol,
		BenefitPayRef:   decoded.BenefitPayRef,
		PaymentProofURL: decoded.PaymentProofURL,
		Status:          decoded.Status,
		Notes:           decoded.Notes,
		Items:           decoded.Items,
		CreatedAt:       decoded.CreatedAt,
		UpdatedAt:       decoded.UpdatedAt,
	}
	return nil
}

func encodeOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Duration:    item.Duration,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return orderDocument{
		FullName:        order.FullName,
		Phone:           order.Phone,
		Email:           order.Email,
		PlanID:          order.PlanID,
		PlanName:        order.PlanName,
		Amount:          order.Amount,
		AmountSAR:       order.AmountSAR,
		CurrencyCode:    order.CurrencyCode,
		CurrencySymbol:  order.CurrencySymbol,
		BenefitPayRef:   order.BenefitPayRef,
		PaymentProofURL: order.PaymentProofURL,
		Status:          string(order.Status),
		Notes:           order.Notes,
		Items:           items,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
	}
}

func decodeOrderDocument(id string, doc orderDocument) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem{
			OrderID:     id,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Duration:    item.Duration,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return domain.Order{
		ID:              id,
		FullName:        doc.FullName,
		Phone:           doc.Phone,
		Email:           doc.Email,
		PlanID:          doc.PlanID,
		PlanName:        doc.PlanName,
		Amount:          doc.Amount,
		AmountSAR:       doc.AmountSAR,
		CurrencyCode:    doc.CurrencyCode,
		CurrencySymbol:  doc.CurrencySymbol,
		BenefitPayRef:   doc.BenefitPayRef,
		PaymentProofURL: doc.PaymentProofURL,
		Status:          domain.OrderStatus(doc.Status),
		Notes:           doc.Notes,
		Items:           items,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

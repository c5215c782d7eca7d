package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a2h-store/api/internal/services"
)

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

type categoryPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NameAr    string `json:"nameAr,omitempty"`
	Slug      string `json:"slug"`
	IconURL   string `json:"iconUrl,omitempty"`
	SortOrder int    `json:"sortOrder"`
	Hidden    bool   `json:"hidden"`
}

func buildCategoryPayload(c services.Category) categoryPayload {
	return categoryPayload{
		ID:        c.ID,
		Name:      c.Name,
		NameAr:    c.NameAr,
		Slug:      c.Slug,
		IconURL:   c.IconURL,
		SortOrder: c.SortOrder,
		Hidden:    c.Hidden,
	}
}

type variantPayload struct {
	ID        string   `json:"id"`
	Duration  string   `json:"duration"`
	Price     float64  `json:"price"`
	SalePrice *float64 `json:"salePrice,omitempty"`
	InStock   bool     `json:"inStock"`
}

type productPayload struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	NameAr      string           `json:"nameAr,omitempty"`
	Description string           `json:"description,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	CategoryID  string           `json:"categoryId,omitempty"`
	Published   bool             `json:"published"`
	Variants    []variantPayload `json:"variants"`
	LowestPrice *pricePayload    `json:"lowestPrice,omitempty"`
}

type pricePayload struct {
	Price     float64  `json:"price"`
	SalePrice *float64 `json:"salePrice,omitempty"`
}

func buildProductPayload(p services.Product, quote *services.PriceQuote) productPayload {
	payload := productPayload{
		ID:          p.ID,
		Name:        p.Name,
		NameAr:      p.NameAr,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		CategoryID:  p.CategoryID,
		Published:   p.Status == "published",
		Variants:    make([]variantPayload, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		payload.Variants = append(payload.Variants, variantPayload{
			ID:        v.ID,
			Duration:  v.Duration,
			Price:     v.Price,
			SalePrice: v.SalePrice,
			InStock:   v.InStock(),
		})
	}
	if quote != nil {
		payload.LowestPrice = &pricePayload{Price: quote.Price, SalePrice: quote.SalePrice}
	}
	return payload
}

type cartLinePayload struct {
	VariantID   string  `json:"variantId"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Duration    string  `json:"duration"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"lineTotal"`
}

type cartPayload struct {
	Lines      []cartLinePayload `json:"lines"`
	TotalItems int               `json:"totalItems"`
	TotalPrice float64           `json:"totalPrice"`
	UpdatedAt  string            `json:"updatedAt,omitempty"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	payload := cartPayload{
		Lines:      make([]cartLinePayload, 0, len(cart.Lines)),
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice(),
		UpdatedAt:  formatTime(cart.UpdatedAt),
	}
	for _, line := range cart.Lines {
		payload.Lines = append(payload.Lines, cartLinePayload{
			VariantID:   line.VariantID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ImageURL:    line.ImageURL,
			Duration:    line.Duration,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal(),
		})
	}
	return payload
}

type orderItemPayload struct {
	ProductID   string  `json:"productId"`
	VariantID   string  `json:"variantId"`
	ProductName string  `json:"productName"`
	Duration    string  `json:"duration"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

type orderPayload struct {
	ID             string             `json:"id"`
	FullName       string             `json:"fullName"`
	Phone          string             `json:"phone"`
	Email          string             `json:"email"`
	PlanID         string             `json:"planId,omitempty"`
	PlanName       string             `json:"planName,omitempty"`
	Amount         float64            `json:"amount"`
	AmountSAR      float64            `json:"amountSar"`
	CurrencyCode   string             `json:"currency"`
	CurrencySymbol string             `json:"currencySymbol,omitempty"`
	BenefitPayRef  string             `json:"benefitpayRef,omitempty"`
	HasProof       bool               `json:"hasProof"`
	Status         string             `json:"status"`
	Notes          string             `json:"notes,omitempty"`
	Items          []orderItemPayload `json:"items"`
	CreatedAt      string             `json:"createdAt,omitempty"`
	UpdatedAt      string             `json:"updatedAt,omitempty"`
}

// buildOrderPayload renders an order for the admin API. The raw proof URL
// stays server-side; admins fetch a short-lived signed URL instead.
func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:             order.ID,
		FullName:       order.FullName,
		Phone:          order.Phone,
		Email:          order.Email,
		PlanID:         order.PlanID,
		PlanName:       order.PlanName,
		Amount:         order.Amount,
		AmountSAR:      order.AmountSAR,
		CurrencyCode:   order.CurrencyCode,
		CurrencySymbol: order.CurrencySymbol,
		BenefitPayRef:  order.BenefitPayRef,
		HasProof:       strings.TrimSpace(order.PaymentProofURL) != "",
		Status:         string(order.Status),
		Notes:          order.Notes,
		Items:          make([]orderItemPayload, 0, len(order.Items)),
		CreatedAt:      formatTime(order.CreatedAt),
		UpdatedAt:      formatTime(order.UpdatedAt),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Duration:    item.Duration,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return payload
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/a2h-store/api/internal/platform/auth"
	"github.com/a2h-store/api/internal/services"
)

func newAdminOrderRouter(service services.OrderService) chi.Router {
	router := chi.NewRouter()
	router.Route("/admin/orders", NewAdminOrderHandlers(service).Routes)
	return router
}

func TestAdminOrdersList(t *testing.T) {
	service := &stubOrderService{
		listOrdersFunc: func(ctx context.Context, filter services.OrderListFilter) ([]services.Order, error) {
			if len(filter.Status) != 2 {
				t.Fatalf("expected 2 status filters, got %v", filter.Status)
			}
			if filter.Status[0] != "pending" || filter.Status[1] != "approved" {
				t.Fatalf("unexpected status filter %v", filter.Status)
			}
			if filter.Limit != 10 {
				t.Fatalf("expected limit 10, got %d", filter.Limit)
			}
			return []services.Order{sampleOrder("01A"), sampleOrder("01B")}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/orders?status=pending,%20approved&limit=10", nil)

	rr := httptest.NewRecorder()
	newAdminOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Orders []orderPayload `json:"orders"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(resp.Orders))
	}
	got := resp.Orders[0]
	if got.Amount != 27.74 || got.AmountSAR != 104 {
		t.Fatalf("unexpected amounts %+v", got)
	}
	if !got.HasProof {
		t.Fatalf("expected hasProof true")
	}
	if strings.Contains(rr.Body.String(), "storage.googleapis.com") {
		t.Fatalf("raw proof URL must not appear in listings: %s", rr.Body.String())
	}
}

func TestAdminOrdersListRejectsBadLimit(t *testing.T) {
	rr := httptest.NewRecorder()
	newAdminOrderRouter(&stubOrderService{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/orders?limit=-3", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminOrdersGetOrder(t *testing.T) {
	service := &stubOrderService{
		getOrderFunc: func(ctx context.Context, orderID string) (services.Order, error) {
			if orderID != "01A" {
				t.Fatalf("unexpected order id %q", orderID)
			}
			return sampleOrder(orderID), nil
		},
	}

	rr := httptest.NewRecorder()
	newAdminOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/orders/01A", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Order orderPayload `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.BenefitPayRef != "BP-20250601-01" {
		t.Fatalf("expected reference, got %q", resp.Order.BenefitPayRef)
	}
	if len(resp.Order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Order.Items))
	}
}

func TestAdminOrdersGetOrderNotFound(t *testing.T) {
	service := &stubOrderService{
		getOrderFunc: func(ctx context.Context, orderID string) (services.Order, error) {
			return services.Order{}, services.ErrOrderNotFound
		},
	}

	rr := httptest.NewRecorder()
	newAdminOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/orders/ghost", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "order_not_found") {
		t.Fatalf("expected order_not_found, got %s", rr.Body.String())
	}
}

func TestAdminOrdersTransitionStatus(t *testing.T) {
	var gotCmd services.OrderStatusTransitionCommand
	service := &stubOrderService{
		transitionFunc: func(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
			gotCmd = cmd
			order := sampleOrder(cmd.OrderID)
			order.Status = cmd.Status
			order.Notes = cmd.Notes
			return order, nil
		},
	}

	body := strings.NewReader(`{"status":" rejected ","notes":"reference does not match any transfer"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/01A/status", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "admin-9", Roles: []string{auth.RoleAdmin}}))

	rr := httptest.NewRecorder()
	newAdminOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotCmd.OrderID != "01A" {
		t.Fatalf("unexpected order id %q", gotCmd.OrderID)
	}
	if gotCmd.Status != "rejected" {
		t.Fatalf("expected trimmed status rejected, got %q", gotCmd.Status)
	}
	if gotCmd.ActorID != "admin-9" {
		t.Fatalf("expected actor from identity, got %q", gotCmd.ActorID)
	}

	var resp struct {
		Order orderPayload `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.Status != "rejected" {
		t.Fatalf("expected rejected order, got %q", resp.Order.Status)
	}
	if resp.Order.Notes == "" {
		t.Fatalf("expected rejection notes in payload")
	}
}

func TestAdminOrdersTransitionStatusErrors(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"invalid target", services.ErrOrderInvalidInput, http.StatusBadRequest, "invalid_request"},
		{"already reviewed", services.ErrOrderInvalidTransition, http.StatusConflict, "invalid_transition"},
		{"missing order", services.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
		{"infrastructure", services.ErrOrderUnavailable, http.StatusServiceUnavailable, "orders_unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &stubOrderService{
				transitionFunc: func(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
					return services.Order{}, tc.serviceErr
				},
			}

			body := strings.NewReader(`{"status":"approved"}`)
			req := httptest.NewRequest(http.MethodPost, "/admin/orders/01A/status", body)

			rr := httptest.NewRecorder()
			newAdminOrderRouter(service).ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.wantCode) {
				t.Fatalf("expected error code %q, got %s", tc.wantCode, rr.Body.String())
			}
		})
	}
}

func TestAdminOrdersProofDownloadURL(t *testing.T) {
	expires := time.Date(2025, 6, 1, 12, 10, 0, 0, time.UTC)
	service := &stubOrderService{
		proofDownloadURLFunc: func(ctx context.Context, orderID string) (services.ProofDownload, error) {
			if orderID != "01A" {
				t.Fatalf("unexpected order id %q", orderID)
			}
			return services.ProofDownload{
				URL:       "https://signed.example.com/payment-proofs/01A.png?sig=abc",
				ExpiresAt: expires,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/orders/01A/proof-url", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "staff-3", Roles: []string{auth.RoleStaff}}))

	rr := httptest.NewRecorder()
	newAdminOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		URL       string `json:"url"`
		ExpiresAt string `json:"expiresAt"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "https://signed.example.com/") {
		t.Fatalf("unexpected url %q", resp.URL)
	}
	if resp.ExpiresAt != "2025-06-01T12:10:00Z" {
		t.Fatalf("unexpected expiry %q", resp.ExpiresAt)
	}
}

func TestAdminOrdersProofDownloadURLNoProof(t *testing.T) {
	service := &stubOrderService{
		proofDownloadURLFunc: func(ctx context.Context, orderID string) (services.ProofDownload, error) {
			return services.ProofDownload{}, services.ErrOrderNoProof
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/orders/01A/proof-url", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "staff-3", Roles: []string{auth.RoleStaff}}))

	rr := httptest.NewRecorder()
	newAdminOrderRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "proof_not_found") {
		t.Fatalf("expected proof_not_found, got %s", rr.Body.String())
	}
}

func TestAdminOrdersProofDownloadURLForbiddenWithoutStaffRole(t *testing.T) {
	service := &stubOrderService{
		proofDownloadURLFunc: func(ctx context.Context, orderID string) (services.ProofDownload, error) {
			t.Fatalf("service should not be called without a staff identity")
			return services.ProofDownload{}, nil
		},
	}

	rr := httptest.NewRecorder()
	newAdminOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/orders/01A/proof-url", nil))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "proof_forbidden") {
		t.Fatalf("expected proof_forbidden, got %s", rr.Body.String())
	}
}

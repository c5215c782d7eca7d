package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a2h-store/api/internal/services"
)

func confirmationOrder() services.Order {
	return services.Order{
		ID:             "01HZXKQ4T3",
		FullName:       "Ahmed Al-Hasan",
		Email:          "ahmed@example.com",
		Amount:         27.74,
		AmountSAR:      104,
		CurrencyCode:   "USD",
		CurrencySymbol: "$",
		Items: []services.OrderItem{
			{ProductName: "Shahid VIP", Duration: "1 Month", Quantity: 2, LineTotal: 33},
			{ProductName: "Shahid VIP", Duration: "12 Months", Quantity: 1, LineTotal: 71},
		},
	}
}

func TestMailerSendOrderConfirmation(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer server.Close()

	mailer, err := NewMailer(MailerDeps{
		Endpoint:    server.URL,
		APIKey:      "re_test_key",
		FromAddress: "orders@a2h.store",
		FromName:    "A2H Store",
	})
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}

	if err := mailer.SendOrderConfirmation(context.Background(), confirmationOrder()); err != nil {
		t.Fatalf("SendOrderConfirmation: %v", err)
	}

	if gotAuth != "Bearer re_test_key" {
		t.Fatalf("Authorization = %q, want bearer key", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody.From != "A2H Store <orders@a2h.store>" {
		t.Fatalf("From = %q, want display name with address", gotBody.From)
	}
	if len(gotBody.To) != 1 || gotBody.To[0] != "ahmed@example.com" {
		t.Fatalf("To = %v, want the shopper address", gotBody.To)
	}
	if !strings.Contains(gotBody.Subject, "01HZXKQ4T3") {
		t.Fatalf("Subject = %q, want order id", gotBody.Subject)
	}
	for _, want := range []string{`dir="rtl"`, "Ahmed Al-Hasan", "01HZXKQ4T3", "Shahid VIP", "$27.74", "33.00 ر.س"} {
		if !strings.Contains(gotBody.HTML, want) {
			t.Fatalf("confirmation body missing %q", want)
		}
	}
}

func TestMailerSendOrderConfirmationAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	mailer, err := NewMailer(MailerDeps{Endpoint: server.URL, APIKey: "re_test_key", FromAddress: "orders@a2h.store"})
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}

	if err := mailer.SendOrderConfirmation(context.Background(), confirmationOrder()); err == nil {
		t.Fatal("SendOrderConfirmation succeeded, want error on 429")
	}
}

func TestMailerDisabledWithoutAPIKey(t *testing.T) {
	mailer, err := NewMailer(MailerDeps{})
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}
	if err := mailer.SendOrderConfirmation(context.Background(), confirmationOrder()); err == nil {
		t.Fatal("SendOrderConfirmation succeeded, want disabled error")
	}
}

func TestMailerRejectsOrderWithoutEmail(t *testing.T) {
	mailer, err := NewMailer(MailerDeps{APIKey: "re_test_key", FromAddress: "orders@a2h.store"})
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}
	order := confirmationOrder()
	order.Email = ""
	if err := mailer.SendOrderConfirmation(context.Background(), order); err == nil {
		t.Fatal("SendOrderConfirmation succeeded, want missing address error")
	}
}

// Package notify delivers transactional mail through a Resend-compatible
// HTTP API. Checkout treats delivery as best effort, so failures here are
// logged by callers rather than surfaced to shoppers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a2h-store/api/internal/services"
)

const (
	defaultEndpoint = "https://api.resend.com/emails"
	requestTimeout  = 10 * time.Second
)

var errMailerDisabled = errors.New("notify: mailer not configured")

// MailerDeps wires the HTTP mailer dependencies.
type MailerDeps struct {
	Endpoint    string
	APIKey      string
	FromAddress string
	FromName    string
	HTTPClient  *http.Client
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

// Mailer sends order confirmation mail. A mailer without an API key is
// disabled and reports errMailerDisabled on every send.
type Mailer struct {
	endpoint    string
	apiKey      string
	fromAddress string
	fromName    string
	client      *http.Client
	logger      func(ctx context.Context, event string, fields map[string]any)
}

var _ services.Mailer = (*Mailer)(nil)

// NewMailer constructs the HTTP mailer.
func NewMailer(deps MailerDeps) (*Mailer, error) {
	if strings.TrimSpace(deps.FromAddress) == "" && strings.TrimSpace(deps.APIKey) != "" {
		return nil, errors.New("notify: from address is required")
	}
	endpoint := strings.TrimSpace(deps.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Mailer{
		endpoint:    endpoint,
		apiKey:      strings.TrimSpace(deps.APIKey),
		fromAddress: strings.TrimSpace(deps.FromAddress),
		fromName:    strings.TrimSpace(deps.FromName),
		client:      client,
		logger:      logger,
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendOrderConfirmation renders the bilingual confirmation body and posts it
// to the mail API.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, order services.Order) error {
	if m.apiKey == "" {
		return errMailerDisabled
	}
	if strings.TrimSpace(order.Email) == "" {
		return errors.New("notify: order has no email address")
	}

	html, err := renderOrderConfirmation(order)
	if err != nil {
		return fmt.Errorf("notify: render confirmation: %w", err)
	}

	from := m.fromAddress
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromAddress)
	}
	payload, err := json.Marshal(sendRequest{
		From:    from,
		To:      []string{order.Email},
		Subject: fmt.Sprintf("تأكيد الطلب %s — Order Confirmation", order.ID),
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("notify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send confirmation: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: mail api responded %d", resp.StatusCode)
	}

	m.logger(ctx, "notify.confirmation_sent", map[string]any{
		"order_id": order.ID,
		"to":       order.Email,
	})
	return nil
}

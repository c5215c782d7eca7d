package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/a2h-store/api/internal/platform/httpx"
	"github.com/a2h-store/api/internal/platform/requestctx"
	"github.com/a2h-store/api/internal/services"
)

const (
	// Form fields plus a payment proof screenshot.
	maxCheckoutFormBytes = 8 << 20

	checkoutRateLimit  = 5
	checkoutRateWindow = time.Minute
)

// CheckoutHandlers exposes the bank-transfer checkout endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
	limiter  submitLimiter
}

// NewCheckoutHandlers constructs checkout handlers with a per-session
// submission rate limit.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{
		checkout: checkout,
		limiter:  newSessionWindowLimiter(checkoutRateLimit, checkoutRateWindow, nil),
	}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/quote", h.getQuote)
	r.Post("/", h.submit)
}

func (h *CheckoutHandlers) getQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	quote, err := h.checkout.Quote(ctx, sessionID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"subtotal":       quote.Subtotal,
		"tax":            quote.Tax,
		"grandTotal":     quote.GrandTotal,
		"currency":       quote.CurrencyCode,
		"currencySymbol": quote.CurrencySymbol,
	})
}

// submit accepts a multipart form: shopper details plus the payment proof
// image under the "proof" field.
func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	if h.limiter != nil && !h.limiter.Allow(sessionID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts, slow down", http.StatusTooManyRequests))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutFormBytes)
	if err := r.ParseMultipartForm(maxCheckoutFormBytes); err != nil {
		status := http.StatusBadRequest
		code := "invalid_request"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
			code = "payload_too_large"
		}
		httpx.WriteError(ctx, w, httpx.NewError(code, "checkout form could not be parsed", status))
		return
	}

	cmd := services.SubmitOrderCommand{
		SessionID:     sessionID,
		FullName:      r.FormValue("fullName"),
		Phone:         r.FormValue("phone"),
		Email:         r.FormValue("email"),
		BenefitPayRef: r.FormValue("benefitpayRef"),
	}

	file, header, err := r.FormFile("proof")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("proof_required", "payment proof image is required", http.StatusBadRequest))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment proof could not be read", http.StatusBadRequest))
		return
	}
	cmd.Proof = services.ProofUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	order, err := h.checkout.Submit(ctx, cmd)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"order": buildOrderPayload(order)})
}

func (h *CheckoutHandlers) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	sessionID := strings.TrimSpace(requestctx.SessionID(ctx))
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "storefront session cookie is required", http.StatusBadRequest))
		return "", false
	}
	return sessionID, true
}

func (h *CheckoutHandlers) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "checkout details are invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no items to submit", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutProofTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("proof_too_large", "payment proof exceeds the size limit", http.StatusRequestEntityTooLarge))
	case errors.Is(err, services.ErrCheckoutProofNotImage):
		httpx.WriteError(ctx, w, httpx.NewError("proof_not_image", "payment proof must be an image", http.StatusUnsupportedMediaType))
	case errors.Is(err, services.ErrCheckoutInFlight):
		httpx.WriteError(ctx, w, httpx.NewError("submission_in_progress", "a submission for this session is already running", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_exists", "this order was already recorded", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout temporarily unavailable", http.StatusServiceUnavailable))
	}
}

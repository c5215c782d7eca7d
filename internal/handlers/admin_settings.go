package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/a2h-store/api/internal/platform/auth"
	"github.com/a2h-store/api/internal/platform/httpx"
	"github.com/a2h-store/api/internal/services"
)

const maxSettingsBodySize = 8 * 1024

// AdminSettingsHandlers maintains the bank-transfer details shown at checkout.
type AdminSettingsHandlers struct {
	settings services.SettingsService
}

// NewAdminSettingsHandlers constructs the admin settings handlers.
func NewAdminSettingsHandlers(settings services.SettingsService) *AdminSettingsHandlers {
	return &AdminSettingsHandlers{settings: settings}
}

// Routes wires the admin settings endpoints onto the provided router.
func (h *AdminSettingsHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getSettings)
	r.Put("/", h.updateSettings)
}

func (h *AdminSettingsHandlers) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("settings_unavailable", "settings service unavailable", http.StatusServiceUnavailable))
		return
	}

	settings, err := h.settings.Settings(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"accountName": settings.AccountName,
		"iban":        settings.IBAN,
		"updatedAt":   formatTime(settings.UpdatedAt),
	})
}

type updateSettingsRequest struct {
	AccountName string `json:"accountName"`
	IBAN        string `json:"iban"`
}

func (h *AdminSettingsHandlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("settings_unavailable", "settings service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxSettingsBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}
	var req updateSettingsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	actorID := ""
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		actorID = identity.UID
	}

	settings, err := h.settings.UpdateSettings(ctx, services.UpdateSettingsCommand{
		AccountName: req.AccountName,
		IBAN:        req.IBAN,
		ActorID:     actorID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"accountName": settings.AccountName,
		"iban":        settings.IBAN,
		"updatedAt":   formatTime(settings.UpdatedAt),
	})
}

func (h *AdminSettingsHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrSettingsInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid bank transfer details", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("settings_unavailable", "settings temporarily unavailable", http.StatusServiceUnavailable))
	}
}

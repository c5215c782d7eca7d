package handlers

import (
	"net/http"

	"github.com/a2h-store/api/internal/services"
)

// HealthHandlers serves the liveness and readiness endpoints. Liveness never
// touches downstream dependencies; readiness consults the system service when
// one is configured.
type HealthHandlers struct {
	system services.SystemService
}

// NewHealthHandlers constructs the health handlers. The system service may be
// nil, in which case readiness reports ok without probing dependencies.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{system: system}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Readyz reports dependency readiness.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{"status": "error"})
		return
	}

	status := http.StatusOK
	if report.Status == "error" {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]any, len(report.Checks))
	for name, check := range report.Checks {
		entry := map[string]any{"status": check.Status}
		if check.Detail != "" {
			entry["detail"] = check.Detail
		}
		if check.Error != "" {
			entry["error"] = check.Error
		}
		checks[name] = entry
	}

	writeJSONResponse(w, status, map[string]any{
		"status":      report.Status,
		"version":     report.Version,
		"commit":      report.CommitSHA,
		"environment": report.Environment,
		"uptime":      report.Uptime.String(),
		"generatedAt": formatTime(report.GeneratedAt),
		"checks":      checks,
	})
}

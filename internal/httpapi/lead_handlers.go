// internal/httpapi/lead_handlers.go
package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lead-qualifier/internal/common/logger"
)

type LeadsHandler struct {
	Service LeadService
	Logger  logger.Logger
}

func (h LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := h.Service.GetLeadSummaries(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, leads)
}

// GetByPath serves /api/leads/{email}.
func (h LeadsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/leads/")
	email, err := url.PathUnescape(raw)
	if err != nil || email == "" || strings.Contains(email, "/") {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "Missing required fields")
		return
	}

	lead, err := h.Service.GetLeadByEmail(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, lead)
}

// Search serves /api/leads/search?q=...&limit=N.
func (h LeadsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	results, err := h.Service.SearchLeads(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, results)
}

func (h LeadsHandler) Funnel(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.FunnelStats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// internal/httpapi/health_handlers.go
package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"lead-qualifier/internal/common/logger"
)

type HealthHandler struct {
	Service LeadService
	Checks  map[string]func(context.Context) error
	Logger  logger.Logger
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ready pings the lead store and every extra dependency check.
func (h HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]func(context.Context) error{"store": h.Service.Ping}
	for name, fn := range h.Checks {
		checks[name] = fn
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(checks))
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			h.Logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	WriteJSON(w, status, map[string]any{"status": state, "checks": results})
}

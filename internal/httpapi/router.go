// internal/httpapi/router.go
package httpapi

import (
	"net/http"

	"lead-qualifier/internal/common/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every route with its middleware.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.With(map[string]interface{}{"component": "httpapi"})

	mux := http.NewServeMux()
	admin := AdminAuth(d.AdminAuth, d.AdminRole, log)

	ch := ChatHandler{Service: d.Service, Logger: log}
	mux.Handle("/api/chat", Chain(methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ch.Post,
	}), Metrics("/api/chat"), RateLimit(d.ChatLimiter)))

	lh := LeadsHandler{Service: d.Service, Logger: log}
	mux.Handle("/api/leads", Chain(methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}), Metrics("/api/leads"), admin))
	mux.Handle("/api/leads/", Chain(methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.GetByPath,
	}), Metrics("/api/leads/{email}"), admin))
	if d.Service.SearchEnabled() {
		mux.Handle("/api/leads/search", Chain(methodMux(map[string]http.HandlerFunc{
			http.MethodGet: lh.Search,
		}), Metrics("/api/leads/search"), admin))
	}
	mux.Handle("/api/stats/funnel", Chain(methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Funnel,
	}), Metrics("/api/stats/funnel"), admin))

	hh := HealthHandler{Service: d.Service, Checks: d.ReadyChecks, Logger: log}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	mux.HandleFunc("/ready", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Ready,
	}))
	mux.Handle("/metrics", promhttp.Handler())

	return Chain(mux,
		RequestID,
		Recover(log),
		AccessLog(log),
		Cors(d.CORSOrigins),
	)
}

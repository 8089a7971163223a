// Package http exposes the dispatch core over REST: a dispatch endpoint for
// domain services, a presence probe for UI indicators, health and metrics.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter assembles the HTTP surface. wsHandler is the websocket upgrade
// endpoint; readiness reports downstream connectivity for /healthz.
func NewRouter(h *Handler, wsHandler http.Handler, readiness func() map[string]bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", healthHandler(readiness))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handle("/ws", wsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/dispatch", h.Dispatch)
		r.Get("/presence/{userID}", h.Presence)
	})

	return otelhttp.NewHandler(r, "notifyd")
}

func healthHandler(readiness func() map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := map[string]bool{}
		if readiness != nil {
			checks = readiness()
			for _, ok := range checks {
				if !ok {
					status = http.StatusServiceUnavailable
				}
			}
		}
		writeJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": checks,
		})
	}
}

package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", g.handleHealth())

	// Webhooks validate themselves per source (Telegram uses a secret
	// token header), so no gateway-level auth here.
	r.Post("/webhooks/{source}", g.dispatcher.ServeHTTP)

	if h := g.metricsHandler(); h != nil {
		r.Handle("/metrics", h)
	}

	return r
}

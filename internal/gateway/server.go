package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// callbackRoute is the address the job service calls when a timer fires.
const callbackRoute = "/management/jobs/{processId}/instances/{processInstanceId}/timers/{timerId}"

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(g.metrics.middleware)

	// Public: no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", g.metricsHandler())

	// Callbacks: optional HMAC per request, rate limited.
	r.Post(callbackRoute, g.dispatcher.ServeHTTP)

	// Admin endpoints: auth required. Not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.audit, g.limiter))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Post("/jobs", g.handleScheduleJob())
				r.Get("/jobs/{id}", g.handleGetJob())
				r.Delete("/jobs/{id}", g.handleCancelJob())
				r.Get("/modules", g.handleListModules())
				r.Get("/config", g.handleGetConfig())
			})
		})
	}

	return r
}

func (g *Gateway) metricsHandler() http.Handler {
	gatherer := g.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

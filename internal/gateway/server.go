package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public.
	r.Get("/health", g.handleHealth())
	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.metrics)
	}

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(g.config.AuthPerMinute)), g.config.AuthPerMinute)
			r.Use(authMiddleware(g.config.Auth, limiter, g.logger))
		}
		r.Get("/status", g.handleStatus())
		r.Get("/ws/events", g.handleEvents)
		r.Route("/api/runs", func(r chi.Router) {
			r.Get("/", g.handleListRuns())
			r.Post("/", g.handleStartRun())
			r.Get("/{id}", g.handleGetRun())
		})
	})
	return r
}

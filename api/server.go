/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the staff frontend

ROUTE GROUPS:
  /api/files/*          Generated file downloads
  /api/dashboard        Recent workdays and missed downloads
  /api/disbursements/*  Cancel workflow
  /api/admin/*          Cache administration

SECURITY NOTE:
  Authentication is terminated upstream of this service; there is no auth
  middleware here.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Get("/refunds", h.DownloadRefunds)
			r.Get("/adi-journal", h.DownloadADIJournal)
			r.Get("/statement", h.DownloadStatement)
			r.Get("/disbursements", h.DownloadDisbursements)
		})

		r.Get("/dashboard", h.Dashboard)

		r.Route("/disbursements", func(r chi.Router) {
			r.Get("/cancelled", h.ListCancelledDisbursements)
			r.Post("/cancel", h.CancelDisbursement)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/cache/clear", h.ClearCache)
		})
	})

	return r
}

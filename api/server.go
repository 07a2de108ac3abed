/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the storefront UI

SECURITY NOTE:
  No authentication middleware. The admin routes are expected to sit
  behind a gateway that authenticates staff.

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

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Get("/{id}/ledger", h.GetLedger)
			r.Get("/{id}/achievements", h.GetAchievements)
			r.Get("/{id}/notifications", h.GetNotifications)
			r.Post("/{id}/awards", h.SubmitAward)
			r.Post("/{id}/purchases", h.SubmitPurchase)
			r.Post("/{id}/visits", h.RecordVisit)
			r.Post("/{id}/redemptions", h.RequestRedemption)
			r.Get("/{id}/redemptions", h.ListAccountRedemptions)
		})

		r.Get("/achievements", h.ListAchievementCatalog)

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", h.ListRewards)
			r.Post("/", h.CreateReward)
			r.Put("/{id}/active", h.SetRewardActive)
		})

		r.Route("/redemptions", func(r chi.Router) {
			r.Get("/pending", h.ListPendingRedemptions)
			r.Post("/{id}/approve", h.ApproveRedemption)
			r.Post("/{id}/deny", h.DenyRedemption)
			r.Post("/{id}/fulfill", h.FulfillRedemption)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/thresholds", h.GetThresholds)
			r.Put("/thresholds", h.UpdateThresholds)
			r.Put("/accounts/{id}/tier", h.OverrideTier)
		})
	})

	return r
}

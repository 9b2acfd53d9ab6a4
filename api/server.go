/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the branch frontend

ROUTE GROUPS:
  /api/schedules/*    Simulation, no persistence
  /api/credits/*      Credit lifecycle, payments, guarantees
  /api/guarantees/*   Release workflow
  /api/products/*     Product catalog
  /api/members/*      Savings positions
  /health             Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Simulation routes
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/simulate", h.SimulateSchedule)
			r.Post("/compare", h.CompareMethods)
		})

		// Credit routes
		r.Route("/credits", func(r chi.Router) {
			r.Get("/", h.ListCredits)
			r.Post("/", h.CreateCredit)
			r.Get("/{id}", h.GetCredit)
			r.Get("/{id}/installments", h.GetInstallments)
			r.Get("/{id}/payments", h.GetPayments)
			r.Post("/{id}/payments", h.ApplyPayment)
			r.Post("/{id}/approve", h.ApproveCredit)
			r.Post("/{id}/reject", h.RejectCredit)
			r.Post("/{id}/disburse", h.DisburseCredit)
			r.Post("/{id}/reevaluate", h.Reevaluate)
			r.Post("/{id}/refinance", h.Refinance)
			r.Get("/{id}/guarantees", h.GetGuarantees)
			r.Post("/{id}/guarantees", h.AttachGuarantees)
			r.Post("/{id}/guarantees/execute", h.ExecuteGuarantees)
		})

		// Guarantee release routes
		r.Route("/guarantees", func(r chi.Router) {
			r.Post("/{id}/release/request", h.RequestRelease)
			r.Post("/{id}/release/approve", h.ApproveRelease)
			r.Post("/{id}/release/deny", h.DenyRelease)
		})

		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
		})

		// Member routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/{id}/savings", h.GetSavingsAccount)
		})
	})

	return r
}

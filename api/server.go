/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. Metrics:    Prometheus request counter + latency histogram
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/users/*       User directory, balances, limits, withdrawals
  /api/transfers/*   Peer transfers
  /api/payments/*    Gateway deposits + webhook
  /api/bills/*       Bill payments
  /api/qr/*          QR payments
  /api/merchants/*   Merchant registry and payments
  /metrics           Prometheus scrape endpoint

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Request metrics middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Get("/{id}/limits", h.GetLimits)
			r.Put("/{id}/limits", h.UpdateLimits)
			r.Post("/{id}/withdraw", h.Withdraw)
		})

		// Transfer routes
		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Get("/fees", h.GetFees)
			r.Post("/send", h.SendMoney)
			r.Post("/request", h.RequestMoney)
			r.Post("/{id}/accept", h.AcceptTransfer)
			r.Post("/{id}/cancel", h.CancelTransfer)
		})

		// Payment (gateway deposit) routes
		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", h.InitiateDeposit)
			r.Post("/confirm", h.ConfirmDeposit)
			r.Post("/webhook", h.Webhook)
		})

		// Bill routes
		r.Route("/bills", func(r chi.Router) {
			r.Get("/", h.ListBills)
			r.Get("/categories", h.ListBillCategories)
			r.Post("/pay", h.PayBill)
		})

		// QR routes
		r.Route("/qr", func(r chi.Router) {
			r.Post("/generate", h.GenerateQR)
			r.Post("/scan", h.ScanQR)
			r.Get("/history", h.ListQRHistory)
		})

		// Merchant routes
		r.Route("/merchants", func(r chi.Router) {
			r.Post("/", h.RegisterMerchant)
			r.Get("/{businessId}/qr", h.GetMerchantQR)
			r.Post("/{businessId}/pay", h.PayMerchant)
		})
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
